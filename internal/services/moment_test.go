package services

import (
  "testing"

  "github.com/stretchr/testify/assert"
)

func TestExtractTagNames(t *testing.T) {
  names := ExtractTagNames("sunset at the #beach with #Friends, more #beach pics soon")
  assert.Equal(t, []string{"beach", "friends"}, names)
}

func TestExtractTagNamesEmpty(t *testing.T) {
  assert.Nil(t, ExtractTagNames("no tags here"))
  assert.Nil(t, ExtractTagNames(""))
}

func TestSlugify(t *testing.T) {
  assert.Equal(t, "summer-trip", Slugify(" Summer Trip "))
  assert.Equal(t, "beach", Slugify("beach"))
}
