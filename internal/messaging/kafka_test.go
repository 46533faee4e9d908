package messaging

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/wayfinder/internal/validation"
	"github.com/temcen/wayfinder/pkg/models"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	users []uuid.UUID
}

func (r *recordingInvalidator) InvalidateUser(_ context.Context, userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
}

type fakeReader struct {
	messages  []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.messages) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDecodeInteractionEvent(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid event",
			payload: `{"user_id":"` + userID.String() + `","item_id":"hotel-1","interaction_type":"book","timestamp":"2024-05-01T10:00:00Z"}`,
		},
		{
			name:    "missing user id",
			payload: `{"item_id":"hotel-1","interaction_type":"view"}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			payload: `{"user_id":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := DecodeInteractionEvent([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, userID, event.UserID)
			assert.Equal(t, "hotel-1", event.ItemID)
			assert.Equal(t, models.InteractionBook, event.InteractionType)
		})
	}
}

func TestInteractionConsumer_HandleMessage(t *testing.T) {
	invalidator := &recordingInvalidator{}
	consumer := NewInteractionConsumerWithReader(&fakeReader{}, invalidator, newTestLogger())
	userID := uuid.New()

	err := consumer.HandleMessage(context.Background(), kafka.Message{
		Value: []byte(`{"user_id":"` + userID.String() + `","item_id":"tour-9","interaction_type":"like"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{userID}, invalidator.users)

	err = consumer.HandleMessage(context.Background(), kafka.Message{Value: []byte(`not json`)})
	assert.Error(t, err)
	assert.Len(t, invalidator.users, 1)
}

func TestInteractionConsumer_RunCommitsEveryMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, second := uuid.New(), uuid.New()
	reader := &fakeReader{
		cancel: cancel,
		messages: []kafka.Message{
			{Offset: 1, Value: []byte(`{"user_id":"` + first.String() + `","item_id":"a","interaction_type":"view"}`)},
			{Offset: 2, Value: []byte(`garbage`)},
			{Offset: 3, Value: []byte(`{"user_id":"` + second.String() + `","item_id":"b","interaction_type":"save"}`)},
		},
	}
	invalidator := &recordingInvalidator{}
	consumer := NewInteractionConsumerWithReader(reader, invalidator, newTestLogger())

	err := consumer.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []uuid.UUID{first, second}, invalidator.users)
	assert.Len(t, reader.committed, 3)
}

func TestInteractionConsumer_SchemaValidation(t *testing.T) {
	schemas, err := validation.NewSchemaValidator()
	require.NoError(t, err)

	invalidator := &recordingInvalidator{}
	consumer := NewInteractionConsumerWithReader(&fakeReader{}, invalidator, newTestLogger()).
		WithSchemaValidator(schemas)

	userID := uuid.New()
	err = consumer.HandleMessage(context.Background(), kafka.Message{
		Value: []byte(`{"user_id":"` + userID.String() + `","item_id":"a","interaction_type":"teleport"}`),
	})
	assert.Error(t, err)
	assert.Empty(t, invalidator.users)

	err = consumer.HandleMessage(context.Background(), kafka.Message{
		Value: []byte(`{"user_id":"` + userID.String() + `","item_id":"a","interaction_type":"share"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{userID}, invalidator.users)
}
