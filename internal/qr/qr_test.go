package qr

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatepass/gatepass/internal/model"
)

func TestEncodeTicketProducesPNGDataURL(t *testing.T) {
	out, err := EncodeTicket(model.QRPayload{
		TicketID:   "TICKET-AB12CD34",
		EventID:    7,
		AttendeeID: 42,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(out, "data:image/png;base64,"))
	require.NoError(t, err)
	// PNG magic bytes.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, raw[:4])
}

func TestEncodeTicketDeterministicForSamePayload(t *testing.T) {
	p := model.QRPayload{TicketID: "TICKET-00000001", EventID: 1, AttendeeID: 1}
	a, err := EncodeTicket(p)
	require.NoError(t, err)
	b, err := EncodeTicket(p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
