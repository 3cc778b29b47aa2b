package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProviderSend(t *testing.T) {
	p := NewHTTPProvider("https://mail.test", "key-123", "Sitework <no-reply@sitework.app>")
	httpmock.ActivateNonDefault(p.client)
	defer httpmock.DeactivateAndReset()

	var got sendReq
	httpmock.RegisterResponder(http.MethodPost, "https://mail.test/emails",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer key-123", req.Header.Get("Authorization"))
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
			return httpmock.NewJsonResponse(http.StatusOK, map[string]string{"id": "msg_abc"})
		})

	id, err := p.Send(context.Background(), Message{
		To:       "alice@example.com",
		Subject:  "Sitework digest",
		HTMLBody: "<p>hi</p>",
		TextBody: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_abc", id)
	assert.Equal(t, "Sitework <no-reply@sitework.app>", got.From)
	assert.Equal(t, []string{"alice@example.com"}, got.To)
	assert.Equal(t, "Sitework digest", got.Subject)
}

func TestHTTPProviderSendErrorStatus(t *testing.T) {
	p := NewHTTPProvider("https://mail.test", "key-123", "no-reply@sitework.app")
	httpmock.ActivateNonDefault(p.client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "https://mail.test/emails",
		httpmock.NewStringResponder(http.StatusUnprocessableEntity, `{"message":"invalid recipient"}`))

	_, err := p.Send(context.Background(), Message{To: "broken"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestHTTPProviderSendEmptyID(t *testing.T) {
	p := NewHTTPProvider("https://mail.test", "key-123", "no-reply@sitework.app")
	httpmock.ActivateNonDefault(p.client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "https://mail.test/emails",
		httpmock.NewStringResponder(http.StatusOK, `{}`))

	_, err := p.Send(context.Background(), Message{To: "alice@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty message id")
}
