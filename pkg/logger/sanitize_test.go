package logger_test

import (
	"testing"

	"github.com/biyuboxing/adminauth/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestSanitizedUsername(t *testing.T) {
	assert.Equal(t, "[empty]", logger.SanitizedUsername(""))
	assert.Equal(t, "**", logger.SanitizedUsername("ab"))
	assert.Equal(t, "a***n", logger.SanitizedUsername("admin"))
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, logger.SanitizeQueryString("password=hunter2"))
	assert.True(t, logger.SanitizeQueryString("CSRF_token=abc"))
	assert.True(t, logger.SanitizeQueryString("redirect=%2Fadmin&session=x"))
	assert.False(t, logger.SanitizeQueryString("page=2&limit=50"))
	assert.False(t, logger.SanitizeQueryString(""))
}
