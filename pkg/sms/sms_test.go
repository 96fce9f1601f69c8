package sms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type recordingAPI struct {
	params []*twilioApi.CreateMessageParams
}

func (r *recordingAPI) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	r.params = append(r.params, p)
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestIsE164(t *testing.T) {
	assert.True(t, IsE164("+14155552671"))
	assert.True(t, IsE164("+84901234567"))
	assert.False(t, IsE164("14155552671"))
	assert.False(t, IsE164("+04155552671"))
	assert.False(t, IsE164("+1415555267123456"))
	assert.False(t, IsE164("+1 415 555"))
}

func TestClient_Send(t *testing.T) {
	api := &recordingAPI{}
	c := NewClientWithAPI(api)

	resp, err := c.Send(Message{From: "+15005550006", To: "+14155552671", Body: "hi", StatusCallback: "https://cb"})
	require.NoError(t, err)
	assert.Equal(t, "SM123", *resp.Sid)

	require.Len(t, api.params, 1)
	p := api.params[0]
	assert.Equal(t, "+14155552671", *p.To)
	assert.Equal(t, "hi", *p.Body)
	assert.Equal(t, "https://cb", *p.StatusCallback)
}

func TestClient_Send_RejectsNonE164(t *testing.T) {
	api := &recordingAPI{}
	c := NewClientWithAPI(api)

	_, err := c.Send(Message{To: "0901234567"})
	assert.ErrorIs(t, err, ErrInvalidNumber)
	assert.Empty(t, api.params)
}

func TestClient_SendWhatsApp(t *testing.T) {
	api := &recordingAPI{}
	c := NewClientWithAPI(api)

	_, err := c.SendWhatsApp(Message{From: "+15005550006", To: "whatsapp:+14155552671", Body: "free form"})
	require.NoError(t, err)
	_, err = c.SendWhatsApp(Message{
		From:             "+15005550006",
		To:               "+14155552671",
		ContentSID:       "HX123",
		ContentVariables: map[string]any{"1": "Alice"},
	})
	require.NoError(t, err)

	require.Len(t, api.params, 2)
	free := api.params[0]
	assert.Equal(t, "whatsapp:+14155552671", *free.To)
	assert.Equal(t, "whatsapp:+15005550006", *free.From)
	assert.Equal(t, "free form", *free.Body)
	assert.Nil(t, free.ContentSid)

	tmpl := api.params[1]
	assert.Equal(t, "HX123", *tmpl.ContentSid)
	assert.JSONEq(t, `{"1":"Alice"}`, *tmpl.ContentVariables)
	assert.Nil(t, tmpl.Body)
}
