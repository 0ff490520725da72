package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"cobranza-bot/internal/config"
)

type fakeCreator struct {
	params []*twilioApi.CreateMessageParams
	sid    string
	err    error
}

func (f *fakeCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	sid := f.sid
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioSender_Send(t *testing.T) {
	api := &fakeCreator{sid: "SM123"}
	s := newTwilioSender(api, "+14155238886", nil)

	id, err := s.Send(context.Background(), "5491122334455", "Hola Ana")
	require.NoError(t, err)
	assert.Equal(t, "SM123", id)

	require.Len(t, api.params, 1)
	p := api.params[0]
	assert.Equal(t, "whatsapp:+14155238886", *p.From)
	assert.Equal(t, "whatsapp:+5491122334455", *p.To)
	assert.Equal(t, "Hola Ana", *p.Body)
}

func TestTwilioSender_Errors(t *testing.T) {
	api := &fakeCreator{err: errors.New("boom")}
	s := newTwilioSender(api, "+14155238886", nil)

	_, err := s.Send(context.Background(), "5491122334455", "x")
	assert.EqualError(t, err, "boom")

	_, err = s.Send(context.Background(), "", "x")
	assert.Error(t, err)
	assert.Len(t, api.params, 1)
}

func TestCloudSender_Send(t *testing.T) {
	var got cloudTextMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.ABC"}]}`))
	}))
	defer srv.Close()

	s := NewCloudSender(srv.URL, "v19.0", "12345", "tok", nil)
	id, err := s.Send(context.Background(), "whatsapp:+5491122334455", "Pagá acá: https://pay.test/x")
	require.NoError(t, err)
	assert.Equal(t, "wamid.ABC", id)
	assert.Equal(t, "5491122334455", got.To)
	assert.Equal(t, "text", got.Type)
	assert.True(t, got.Text.PreviewURL)
}

func TestCloudSender_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"invalid token"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewCloudSender(srv.URL, "", "12345", "bad", nil)
	_, err := s.Send(context.Background(), "5491122334455", "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestDisabledSender(t *testing.T) {
	_, err := NewDisabledSender("sin proveedor").Send(context.Background(), "1", "x")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNewSenderFromConfig(t *testing.T) {
	s, err := NewSenderFromConfig(&config.Config{WhatsAppProvider: "disabled"}, nil)
	require.NoError(t, err)
	_, err = s.Send(context.Background(), "1", "x")
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = NewSenderFromConfig(&config.Config{WhatsAppProvider: "twilio"}, nil)
	assert.Error(t, err)

	s, err = NewSenderFromConfig(&config.Config{WhatsAppProvider: "cloud", WhatsAppToken: "t", PhoneNumberID: "1"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &CloudSender{}, s)

	_, err = NewSenderFromConfig(&config.Config{WhatsAppProvider: "pigeon"}, nil)
	assert.Error(t, err)
}

func TestWebhookPayload_TextMessages(t *testing.T) {
	raw := `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{
		"messaging_product":"whatsapp",
		"messages":[
			{"from":"5491122334455","id":"wamid.1","type":"text","text":{"body":"Quiero pagar"}},
			{"from":"5491122334455","id":"wamid.2","type":"image"},
			{"from":"5491100000000","id":"wamid.3","type":"text","text":{"body":"  "}}
		]}}]}]}`
	var p WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	msgs := p.TextMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, InboundMessage{From: "+5491122334455", Body: "Quiero pagar", ID: "wamid.1"}, msgs[0])
}
