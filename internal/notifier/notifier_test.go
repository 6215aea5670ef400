package notifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/fbsweep/internal/config"
	"github.com/ibeckermayer/fbsweep/internal/digest"
	"github.com/ibeckermayer/fbsweep/internal/logger"
)

type fakeSender struct {
	subject, html, plain string
	err                  error
}

func (f *fakeSender) Name() string { return "fake" }

func (f *fakeSender) Send(subject, htmlBody, plainBody string) error {
	f.subject, f.html, f.plain = subject, htmlBody, plainBody
	return f.err
}

func TestSendDigest(t *testing.T) {
	s := &fakeSender{}
	n := New(s, logger.Discard())

	require.NoError(t, n.SendDigest(&digest.Digest{Subject: "sub", HTMLBody: "<b>h</b>", PlainBody: "p", Posts: 1}))
	assert.Equal(t, "sub", s.subject)
	assert.Equal(t, "<b>h</b>", s.html)
	assert.Equal(t, "p", s.plain)
}

func TestSendDigestError(t *testing.T) {
	n := New(&fakeSender{err: errors.New("boom")}, logger.Discard())
	err := n.SendDigest(&digest.Digest{})
	assert.EqualError(t, err, "fake: boom")
}

func TestNewFromConfig(t *testing.T) {
	n, err := NewFromConfig(config.NotifyConfig{}, logger.Discard())
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = NewFromConfig(config.NotifyConfig{Provider: "smtp", SMTPHost: "h", SMTPPort: 25}, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, "smtp", n.sender.Name())

	_, err = NewFromConfig(config.NotifyConfig{Provider: "pigeon"}, logger.Discard())
	assert.Error(t, err)
}
