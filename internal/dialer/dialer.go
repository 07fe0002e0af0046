// Package dialer places real outbound collection calls through Twilio
// and records them for the transcript watcher to close out later.
package dialer

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"promptune/internal/models"
	"promptune/internal/store"
)

// Request holds the details of one outbound call.
type Request struct {
	Name        string  `json:"name" validate:"required"`
	PhoneNumber string  `json:"phone_number" validate:"required"`
	CountryCode string  `json:"country_code" validate:"required"`
	Amount      float64 `json:"amount" validate:"min=0"`
}

// Dialer wraps the Twilio REST client and the call-record bookkeeping
// around it.
type Dialer struct {
	client     *twilio.RestClient
	store      store.Store
	fromNumber string
	voiceURL   string
	logger     *zap.Logger
}

// New builds a Dialer from Twilio credentials. voiceURL is the TwiML
// endpoint Twilio fetches when the callee answers.
func New(accountSID, authToken, fromNumber, voiceURL string, st store.Store, logger *zap.Logger) *Dialer {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Dialer{
		client:     client,
		store:      st,
		fromNumber: fromNumber,
		voiceURL:   voiceURL,
		logger:     logger,
	}
}

// newRoomName generates the room identifier the telephony agent embeds
// in its transcript filename.
func newRoomName() string {
	return fmt.Sprintf("outbound-%010d", rand.Int63n(1e10))
}

// Dial places the call and persists a dialed CallRecord. The record
// stays in "dialed" status until the watcher sees its transcript land.
func (d *Dialer) Dial(ctx context.Context, req Request) (*models.CallRecord, error) {
	roomName := newRoomName()
	to := req.CountryCode + strings.TrimSpace(req.PhoneNumber)

	params := &twilioApi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(d.fromNumber)
	params.SetUrl(d.voiceURL)

	call, err := d.client.Api.CreateCall(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create call: %w", err)
	}

	record := models.CallRecord{
		RoomName:    roomName,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		CountryCode: req.CountryCode,
		Amount:      req.Amount,
		Status:      "dialed",
	}
	id, err := d.store.InsertCall(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to record call: %w", err)
	}
	record.CallID = id

	sid := ""
	if call.Sid != nil {
		sid = *call.Sid
	}
	d.logger.Info("outbound call placed",
		zap.String("call_id", record.CallID),
		zap.String("twilio_sid", sid),
		zap.String("room_name", roomName))
	return &record, nil
}
