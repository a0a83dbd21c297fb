package lobby

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"ninjanight/internal/game"
	"ninjanight/internal/metrics"
	"ninjanight/internal/store"
)

// Directory opens rooms and lists them.
type Directory struct {
	store      store.Store
	log        *zap.Logger
	metrics    *metrics.Collector
	codeLength int
	codeTries  int
	now        func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithCodeLength sets the number of digits in an invitation code.
func WithCodeLength(n int) DirectoryOption {
	return func(d *Directory) {
		if n > 0 {
			d.codeLength = n
		}
	}
}

// WithCodeTries bounds how many codes are tried before giving up.
func WithCodeTries(n int) DirectoryOption {
	return func(d *Directory) {
		if n > 0 {
			d.codeTries = n
		}
	}
}

// WithCodeSource sets the random source for invitation codes.
func WithCodeSource(src rand.Source) DirectoryOption {
	return func(d *Directory) { d.rng = rand.New(src) }
}

func WithDirectoryMetrics(m *metrics.Collector) DirectoryOption {
	return func(d *Directory) { d.metrics = m }
}

func WithDirectoryClock(now func() time.Time) DirectoryOption {
	return func(d *Directory) { d.now = now }
}

func NewDirectory(st store.Store, log *zap.Logger, opts ...DirectoryOption) *Directory {
	d := &Directory{
		store:      st,
		log:        log,
		codeLength: 8,
		codeTries:  5,
		now:        time.Now,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CreateRoom writes a new room with a fresh invitation code. The host is
// not a member until it joins like everyone else.
func (d *Directory) CreateRoom(ctx context.Context, settings game.RoomSettings) (*game.Room, error) {
	const op = "create room"
	if err := settings.Validate(); err != nil {
		return nil, game.Wrap(op, err)
	}

	code, err := d.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	room := &game.Room{
		InvitationCode: code,
		Name:           settings.Name,
		HostID:         settings.HostID,
		MinCapacity:    settings.MinCapacity,
		MaxCapacity:    settings.MaxCapacity,
		IsPrivate:      settings.IsPrivate,
		Password:       settings.Password,
		CurrentPhase:   game.PhaseDraft,
		CreatedAt:      d.now(),
	}
	data, err := store.Encode(room)
	if err != nil {
		return nil, game.E(game.KindInvalidInput, op, err)
	}
	id, err := d.store.Add(ctx, store.RoomsPath(), data)
	if err != nil {
		return nil, game.FromStore(op, err)
	}
	room.ID = id

	d.metrics.RoomCreated()
	d.log.Info("room created",
		zap.String("room_id", id),
		zap.String("code", code),
		zap.String("host", settings.HostID))
	return room, nil
}

// ListRooms returns every room with its current occupancy.
func (d *Directory) ListRooms(ctx context.Context) ([]game.RoomSummary, error) {
	const op = "list rooms"
	docs, err := d.store.List(ctx, store.RoomsPath())
	if err != nil {
		return nil, game.FromStore(op, err)
	}

	rooms := make([]game.RoomSummary, 0, len(docs))
	for _, doc := range docs {
		room, err := game.RoomFromDocument(doc)
		if err != nil {
			d.log.Warn("skipping undecodable room", zap.String("room_id", doc.ID), zap.Error(err))
			continue
		}
		players, err := d.store.List(ctx, store.PlayersPath(room.ID))
		if err != nil {
			return nil, game.FromStore(op, err)
		}
		rooms = append(rooms, game.Summarize(room, len(players)))
	}
	return rooms, nil
}

// CheckRoomExists reports whether a room uses code.
func (d *Directory) CheckRoomExists(ctx context.Context, code string) (bool, error) {
	if code == "" {
		return false, game.Wrap("check room", game.ErrEmptyInvitationCode)
	}
	docs, err := d.store.Query(ctx, store.RoomsPath(), "invitationCode", code)
	if err != nil {
		return false, game.FromStore("check room", err)
	}
	return len(docs) > 0, nil
}

func (d *Directory) uniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < d.codeTries; i++ {
		code := d.newCode()
		taken, err := d.CheckRoomExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
		d.log.Debug("invitation code collision", zap.String("code", code))
	}
	return "", game.E(game.KindTransient, "create room",
		fmt.Errorf("no free invitation code after %d tries", d.codeTries))
}

// newCode returns a random code of codeLength digits without a leading zero.
func (d *Directory) newCode() string {
	low := 1
	for i := 1; i < d.codeLength; i++ {
		low *= 10
	}
	d.mu.Lock()
	n := low + d.rng.Intn(9*low)
	d.mu.Unlock()
	return strconv.Itoa(n)
}

func findRoomByCode(ctx context.Context, st store.Store, log *zap.Logger, code string) (*game.Room, error) {
	const op = "find room"
	if code == "" {
		return nil, game.Wrap(op, game.ErrEmptyInvitationCode)
	}
	docs, err := st.Query(ctx, store.RoomsPath(), "invitationCode", code)
	if err != nil {
		return nil, game.FromStore(op, err)
	}
	if len(docs) == 0 {
		return nil, game.Wrap(op, fmt.Errorf("%w: code %s", game.ErrRoomNotFound, code))
	}
	if len(docs) > 1 {
		log.Warn("invitation code shared by several rooms, using the first",
			zap.String("code", code), zap.Int("rooms", len(docs)))
	}
	return game.RoomFromDocument(docs[0])
}
