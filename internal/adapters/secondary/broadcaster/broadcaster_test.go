package broadcaster_test

import (
	"context"
	"testing"

	"github.com/arthurdotwork/forumlive/internal/adapters/secondary/broadcaster"
	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestBroadcasters_RefuseInvalidEvents(t *testing.T) {
	t.Parallel()

	invalid := domain.Event{Kind: domain.EventMessageCreated}

	publishers := map[string]interface {
		Publish(ctx context.Context, e domain.Event) error
	}{
		"redis": broadcaster.NewRedisBroadcaster(nil, "forum-events"),
		"nats":  broadcaster.NewNatsBroadcaster(nil, "forum.events"),
		"kafka": broadcaster.NewKafkaBroadcaster(nil, "forum-events"),
	}

	for name, publisher := range publishers {
		t.Run("it should refuse an invalid event before reaching "+name, func(t *testing.T) {
			t.Parallel()

			err := publisher.Publish(context.Background(), invalid)
			require.ErrorIs(t, err, domain.ErrInvalidEvent)
		})
	}
}
