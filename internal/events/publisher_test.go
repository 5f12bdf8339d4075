package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"vesting-backend/internal/dto"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *capturePublisher) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func TestPublisherSubjects(t *testing.T) {
	p := NewPublisher(&capturePublisher{}, "vesting.events.", logrus.New())

	tests := []struct {
		msg  dto.EventMessage
		want string
	}{
		{dto.EventMessage{Name: "Claimed", Token: "0x00000000000000000000000000000000000000AA"}, "vesting.events.0x00000000000000000000000000000000000000aa.Claimed"},
		{dto.EventMessage{Name: "AuthorityKeyUpdated"}, "vesting.events.contract.AuthorityKeyUpdated"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, p.Subject(&tt.msg))
	}
}

func TestPublisherHandleEventMessage(t *testing.T) {
	require := require.New(t)
	capture := &capturePublisher{}
	p := NewPublisher(capture, "", logrus.New())

	msg := &dto.EventMessage{EventID: "e1", Name: "Deposited", Token: "0xaa", Amount: "500"}
	require.NoError(p.HandleEventMessage(context.Background(), msg))
	require.Equal([]string{"vesting.events.0xaa.Deposited"}, capture.subjects)

	var decoded dto.EventMessage
	require.NoError(json.Unmarshal(capture.payloads[0], &decoded))
	require.Equal(*msg, decoded)

	capture.err = errors.New("nats: connection closed")
	require.Error(p.HandleEventMessage(context.Background(), msg))
}
