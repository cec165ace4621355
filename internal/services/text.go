package services

import (
  "bytes"
  "context"
  "encoding/json"
  "fmt"
  "net/http"
  "os"
  "time"

  twilio "github.com/twilio/twilio-go"
  openapi "github.com/twilio/twilio-go/rest/api/v2010"

  "github.com/snapmoment/snapmoment-backend/internal/logger"
)

type TextService interface {
  SendText(ctx context.Context, toNumber string, body string) error
}

// NewTextService picks a provider from TEXT_PROVIDER: "twilio" (default) or
// "gateway" for a plain HTTP SMS gateway.
func NewTextService(log *logger.Logger) (TextService, error) {
  provider := os.Getenv("TEXT_PROVIDER")
  if provider == "gateway" {
    return NewGatewayTextService(log)
  }
  return NewTwilioTextService(log)
}

// ----------------------------------------------------------------
// Twilio
// ----------------------------------------------------------------

type twilioTextService struct {
  log    *logger.Logger
  client *twilio.RestClient
  from   string
}

func NewTwilioTextService(log *logger.Logger) (TextService, error) {
  serviceLog := log.With("service", "TextService", "provider", "twilio")
  accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
  authToken := os.Getenv("TWILIO_AUTH_TOKEN")
  fromNumber := os.Getenv("TWILIO_FROM_NUMBER")

  if accountSid == "" || authToken == "" || fromNumber == "" {
    return nil, fmt.Errorf("Missing Twilio env variables: TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_FROM_NUMBER")
  }

  client := twilio.NewRestClientWithParams(twilio.ClientParams{
    Username: accountSid,
    Password: authToken,
  })

  ts := &twilioTextService{
    log:    serviceLog,
    client: client,
    from:   fromNumber,
  }
  return ts, nil
}

func (ts *twilioTextService) SendText(ctx context.Context, toNumber string, body string) error {
  params := &openapi.CreateMessageParams{}
  params.SetTo(toNumber)
  params.SetFrom(ts.from)
  params.SetBody(body)

  resp, err := ts.client.Api.CreateMessage(params)
  if err != nil {
    ts.log.Warn("Failed to send Text via Twilio", "error", err)
    return err
  }
  ts.log.Info("Successfully sent Text via Twilio", "toNumber", toNumber, "sid", *resp.Sid, "status", *resp.Status)
  return nil
}

// ----------------------------------------------------------------
// HTTP gateway
// ----------------------------------------------------------------

type gatewayTextService struct {
  log      *logger.Logger
  client   *http.Client
  endpoint string
  apiKey   string
  clientID string
  senderID string
}

func NewGatewayTextService(log *logger.Logger) (TextService, error) {
  serviceLog := log.With("service", "TextService", "provider", "gateway")
  endpoint := os.Getenv("SMS_GATEWAY_ENDPOINT")
  apiKey := os.Getenv("SMS_GATEWAY_API_KEY")
  clientID := os.Getenv("SMS_GATEWAY_CLIENT_ID")
  senderID := os.Getenv("SMS_GATEWAY_SENDER_ID")

  if endpoint == "" || apiKey == "" {
    return nil, fmt.Errorf("Missing gateway env variables: SMS_GATEWAY_ENDPOINT, SMS_GATEWAY_API_KEY")
  }

  gs := &gatewayTextService{
    log:      serviceLog,
    client:   &http.Client{Timeout: 15 * time.Second},
    endpoint: endpoint,
    apiKey:   apiKey,
    clientID: clientID,
    senderID: senderID,
  }
  return gs, nil
}

func (gs *gatewayTextService) SendText(ctx context.Context, toNumber string, body string) error {
  payload := map[string]string{
    "apiKey":   gs.apiKey,
    "clientId": gs.clientID,
    "senderId": gs.senderID,
    "message":  body,
    "mobile":   toNumber,
  }
  raw, err := json.Marshal(payload)
  if err != nil {
    return err
  }

  req, err := http.NewRequestWithContext(ctx, http.MethodPost, gs.endpoint, bytes.NewReader(raw))
  if err != nil {
    return err
  }
  req.Header.Set("Content-Type", "application/json")

  resp, err := gs.client.Do(req)
  if err != nil {
    gs.log.Warn("Failed to send Text via gateway", "error", err)
    return err
  }
  defer resp.Body.Close()
  if resp.StatusCode >= 300 {
    gs.log.Warn("Gateway rejected text send", "statusCode", resp.StatusCode)
    return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
  }
  gs.log.Info("Successfully sent Text via gateway", "toNumber", toNumber, "statusCode", resp.StatusCode)
  return nil
}
