package livekit

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"livemon/internal/core/domain"
	"livemon/internal/core/ports"
	"livemon/pkg/retry"

	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
	"go.uber.org/zap"
)

// tokenTransport injects a short-lived admin token into every RoomService
// request, the way the server SDK authenticates twirp calls.
type tokenTransport struct {
	apiKey    string
	apiSecret string
	base      http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	at := auth.NewAccessToken(t.apiKey, t.apiSecret)
	grant := &auth.VideoGrant{RoomList: true, RoomAdmin: true}
	token, err := at.AddGrant(grant).SetValidFor(time.Minute).ToJWT()
	if err != nil {
		return nil, fmt.Errorf("failed to mint access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(req)
}

// Poller reconciles upstream room state on a fixed cadence, used as a
// fallback for webhooks that never arrived. It never touches the store
// directly: differences are expressed as normalized events through the same
// ingest entry point every other producer uses.
type Poller struct {
	client   livekit.RoomService
	sink     ports.EventSink
	store    ports.MetricsStore
	interval time.Duration
	backoff  retry.Config
	logger   *zap.SugaredLogger
}

func NewPoller(url, apiKey, apiSecret string, sink ports.EventSink, store ports.MetricsStore, interval time.Duration, logger *zap.SugaredLogger) *Poller {
	httpClient := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &tokenTransport{
			apiKey:    apiKey,
			apiSecret: apiSecret,
			base:      http.DefaultTransport,
		},
	}
	return &Poller{
		client:   livekit.NewRoomServiceProtobufClient(url, httpClient),
		sink:     sink,
		store:    store,
		interval: interval,
		backoff:  retry.DefaultConfig(),
		logger:   logger,
	}
}

// Run polls until ctx is cancelled. Upstream failures are confined here:
// they are logged and the next cycle tries again.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Infow("livekit poller started", "interval", p.interval)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("livekit poller stopped")
			return
		case <-ticker.C:
			if err := p.syncOnce(ctx); err != nil {
				p.logger.Warnw("room sync failed, will retry next cycle", "error", err)
			}
		}
	}
}

func (p *Poller) syncOnce(ctx context.Context) error {
	var resp *livekit.ListRoomsResponse
	err := retry.Do(ctx, p.backoff, func() error {
		var callErr error
		resp, callErr = p.client.ListRooms(ctx, &livekit.ListRoomsRequest{})
		return callErr
	})
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}

	known := make(map[string]domain.Room)
	for _, room := range p.store.Rooms() {
		known[room.SID] = room
	}

	upstream := append([]*livekit.Room(nil), resp.Rooms...)
	sort.Slice(upstream, func(i, j int) bool { return upstream[i].Sid < upstream[j].Sid })

	live := make(map[string]bool, len(upstream))
	for _, lkRoom := range upstream {
		live[lkRoom.Sid] = true
		if _, exists := known[lkRoom.Sid]; !exists {
			p.sink.Ingest(domain.Event{
				Kind:            domain.EventRoomStarted,
				Timestamp:       time.Unix(lkRoom.CreationTime, 0),
				RoomSID:         lkRoom.Sid,
				RoomName:        lkRoom.Name,
				MaxParticipants: int(lkRoom.MaxParticipants),
			})
		}
		if err := p.syncParticipants(ctx, lkRoom, known[lkRoom.Sid]); err != nil {
			p.logger.Warnw("participant sync failed", "room", lkRoom.Name, "error", err)
		}
	}

	// Rooms that vanished upstream finished without a webhook.
	for sid, room := range known {
		if !live[sid] {
			p.sink.Ingest(domain.Event{
				Kind:     domain.EventRoomFinished,
				RoomSID:  sid,
				RoomName: room.Name,
			})
		}
	}

	return nil
}

func (p *Poller) syncParticipants(ctx context.Context, lkRoom *livekit.Room, knownRoom domain.Room) error {
	var resp *livekit.ListParticipantsResponse
	err := retry.Do(ctx, p.backoff, func() error {
		var callErr error
		resp, callErr = p.client.ListParticipants(ctx, &livekit.ListParticipantsRequest{Room: lkRoom.Name})
		return callErr
	})
	if err != nil {
		return err
	}

	existing := make(map[string]domain.Participant, len(knownRoom.Participants))
	for _, participant := range knownRoom.Participants {
		existing[participant.SID] = participant
	}

	seen := make(map[string]bool, len(resp.Participants))
	for _, lkParticipant := range resp.Participants {
		seen[lkParticipant.Sid] = true

		prior, present := existing[lkParticipant.Sid]
		if !present {
			name := lkParticipant.Name
			if name == "" {
				name = lkParticipant.Identity
			}
			p.sink.Ingest(domain.Event{
				Kind:            domain.EventParticipantJoined,
				Timestamp:       time.Unix(lkParticipant.JoinedAt, 0),
				RoomSID:         lkRoom.Sid,
				ParticipantSID:  lkParticipant.Sid,
				ParticipantName: name,
				Quality:         domain.QualityUnknown,
			})
		}

		// Reconcile track counts through the same track events webhooks use.
		for have := prior.TracksPublished; have < len(lkParticipant.Tracks); have++ {
			p.sink.Ingest(domain.Event{
				Kind:           domain.EventTrackPublished,
				RoomSID:        lkRoom.Sid,
				ParticipantSID: lkParticipant.Sid,
			})
		}
		for have := prior.TracksPublished; have > len(lkParticipant.Tracks); have-- {
			p.sink.Ingest(domain.Event{
				Kind:           domain.EventTrackUnpublished,
				RoomSID:        lkRoom.Sid,
				ParticipantSID: lkParticipant.Sid,
			})
		}
	}

	// Participants we track that the upstream no longer lists left quietly;
	// unexpected drops arrive via webhooks, so the poller treats these as
	// normal leaves.
	for sid := range existing {
		if !seen[sid] {
			p.sink.Ingest(domain.Event{
				Kind:           domain.EventParticipantLeft,
				RoomSID:        lkRoom.Sid,
				ParticipantSID: sid,
			})
		}
	}

	return nil
}
