package browser

import (
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
)

func TestOptionsExtendDefaults(t *testing.T) {
	base := len(chromedp.DefaultExecAllocatorOptions)

	headful := Options(false)
	headless := Options(true)

	assert.Greater(t, len(headful), base)
	// Headless adds disable-gpu on top.
	assert.Equal(t, len(headful)+1, len(headless))
}
