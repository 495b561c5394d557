package httpclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c := New()
	assert.Equal(t, DefaultTimeout, c.Timeout)
	assert.Nil(t, c.Transport)
}

func TestNewArr(t *testing.T) {
	assert.Equal(t, ArrTimeout, NewArr(0).Timeout)
	assert.Equal(t, 5*time.Second, NewArr(5*time.Second).Timeout)
}

func TestNew_InsecureSkipVerify(t *testing.T) {
	c := New(WithInsecureSkipVerify(true), WithTimeout(time.Second))

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, tr.TLSClientConfig)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)
	assert.Equal(t, time.Second, c.Timeout)
}
