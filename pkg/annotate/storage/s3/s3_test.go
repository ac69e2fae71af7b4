package s3

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNewConvertsPresignSecondsOnce(t *testing.T) {
	// Config carries raw seconds, as the process config does; the backend
	// owns the one and only conversion to a duration.
	b, err := New(Config{
		Bucket:          "uploads",
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		PresignDuration: 90,
	})
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, b.presignDuration)
}

func TestNewDefaultPresignDuration(t *testing.T) {
	b, err := New(Config{
		Bucket:          "uploads",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, b.presignDuration)
}
