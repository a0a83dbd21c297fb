// Package lobby implements joining, leaving and observing a room from one
// client's point of view.
package lobby

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"ninjanight/internal/events"
	"ninjanight/internal/game"
	"ninjanight/internal/metrics"
	"ninjanight/internal/presence"
	"ninjanight/internal/store"
)

// Manager is one client's membership in at most one room. Every write it
// makes targets the caller's own player record, except the host deleting
// the room on leave.
type Manager struct {
	identity string
	store    store.Store
	pub      events.Publisher
	log      *zap.Logger
	metrics  *metrics.Collector
	now      func() time.Time
	window   time.Duration
	tracker  *presence.Tracker

	mu   sync.Mutex
	sess *session
}

// session holds everything that lives between a join and the matching
// leave or room closure.
type session struct {
	room    *game.Room
	isHost  bool
	ready   bool
	players []game.Player
	gate    game.StartGate
	bg      background
}

// background is the set of standing subscriptions of a session.
type background struct {
	cancel  context.CancelFunc
	list    *store.Watch[store.CollectionEvent]
	watcher *Watcher
	done    chan struct{}
}

type managerOptions struct {
	now               func() time.Time
	window            time.Duration
	heartbeatInterval time.Duration
	metrics           *metrics.Collector
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerOptions)

// WithClock sets the time source used for heartbeats and liveness.
func WithClock(now func() time.Time) ManagerOption {
	return func(o *managerOptions) { o.now = now }
}

// WithLivenessWindow sets how old a heartbeat may be before a player counts
// as gone.
func WithLivenessWindow(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if d > 0 {
			o.window = d
		}
	}
}

// WithHeartbeatInterval sets the heartbeat period of the presence tracker.
func WithHeartbeatInterval(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if d > 0 {
			o.heartbeatInterval = d
		}
	}
}

func WithMetrics(m *metrics.Collector) ManagerOption {
	return func(o *managerOptions) { o.metrics = m }
}

// NewManager creates the lobby client for identity, the opaque player name
// supplied by the caller.
func NewManager(identity string, st store.Store, pub events.Publisher, log *zap.Logger, opts ...ManagerOption) *Manager {
	o := managerOptions{
		now:               time.Now,
		window:            game.LivenessWindow,
		heartbeatInterval: game.HeartbeatInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if pub == nil {
		pub = events.Discard
	}
	log = log.With(zap.String("player", identity))

	return &Manager{
		identity: identity,
		store:    st,
		pub:      pub,
		log:      log,
		metrics:  o.metrics,
		now:      o.now,
		window:   o.window,
		tracker: presence.NewTracker(st, pub, log,
			presence.WithInterval(o.heartbeatInterval),
			presence.WithClock(o.now),
			presence.WithMetrics(o.metrics)),
	}
}

// Identity is the player name this client joins under.
func (m *Manager) Identity() string { return m.identity }

// JoinRoom joins the room with the given invitation code and returns the
// player list as of the join. Joining the room the client is already in
// rewrites its own record and nothing else.
func (m *Manager) JoinRoom(ctx context.Context, code, password string) ([]game.Player, error) {
	players, err := m.joinRoom(ctx, code, password)
	m.metrics.JoinAttempt(joinOutcome(err))
	if err != nil {
		m.log.Info("join failed", zap.String("code", code), zap.Stringer("kind", game.KindOf(err)), zap.Error(err))
		return nil, err
	}
	return players, nil
}

func (m *Manager) joinRoom(ctx context.Context, code, password string) ([]game.Player, error) {
	const op = "join room"
	if code == "" {
		return nil, game.Wrap(op, game.ErrEmptyInvitationCode)
	}

	m.mu.Lock()
	current := m.sess
	m.mu.Unlock()
	if current != nil {
		if current.room.InvitationCode != code {
			return nil, game.Wrap(op, game.ErrAlreadyJoined)
		}
		return m.rejoin(ctx, current)
	}

	room, err := findRoomByCode(ctx, m.store, m.log, code)
	if err != nil {
		return nil, err
	}
	if !room.CheckPassword(password) {
		return nil, game.Wrap(op, game.ErrWrongPassword)
	}

	docs, err := m.store.List(ctx, store.PlayersPath(room.ID))
	if err != nil {
		return nil, game.FromStore(op, err)
	}
	if !containsPlayer(docs, m.identity) && len(docs) >= room.MaxCapacity {
		m.pub.Publish(events.NewRoomFull(room.ID))
		return nil, game.Wrap(op, game.ErrRoomFull)
	}

	isHost := room.IsHost(m.identity)
	if err := m.writeRecord(ctx, room.ID, isHost); err != nil {
		return nil, err
	}

	players, err := m.fetchPlayers(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	gate := m.evaluate(room, players)

	sess := &session{
		room:    room,
		isHost:  isHost,
		ready:   isHost,
		players: players,
		gate:    gate,
	}
	m.mu.Lock()
	if m.sess != nil {
		m.mu.Unlock()
		return nil, game.Wrap(op, game.ErrAlreadyJoined)
	}
	m.sess = sess
	m.mu.Unlock()

	m.tracker.Start(room.ID, m.identity)
	if err := m.listen(sess); err != nil {
		m.mu.Lock()
		m.sess = nil
		m.mu.Unlock()
		m.tracker.Stop()
		return nil, err
	}
	m.pub.Publish(events.NewJoinSucceeded(room.ID, players, gate))
	m.log.Info("joined room",
		zap.String("room_id", room.ID),
		zap.Bool("host", isHost),
		zap.Int("players", len(players)))
	return players, nil
}

func (m *Manager) rejoin(ctx context.Context, sess *session) ([]game.Player, error) {
	m.mu.Lock()
	roomID, ready := sess.room.ID, sess.ready
	m.mu.Unlock()

	if err := m.writeRecord(ctx, roomID, ready); err != nil {
		return nil, err
	}
	players, err := m.fetchPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	m.pub.Publish(events.NewJoinSucceeded(roomID, players, m.evaluate(sess.room, players)))
	return players, nil
}

// writeRecord upserts the caller's own membership record.
func (m *Manager) writeRecord(ctx context.Context, roomID string, ready bool) error {
	data, err := store.Encode(game.NewPlayer(m.identity, ready, m.now()))
	if err != nil {
		return game.E(game.KindInvalidInput, "write player", err)
	}
	if err := m.store.Put(ctx, store.PlayerPath(roomID, m.identity), data); err != nil {
		return game.FromStore("write player", err)
	}
	return nil
}

// fetchPlayers reads the player list once. A room without players yields an
// empty list.
func (m *Manager) fetchPlayers(ctx context.Context, roomID string) ([]game.Player, error) {
	docs, err := m.store.List(ctx, store.PlayersPath(roomID))
	if err != nil {
		return nil, game.FromStore("fetch players", err)
	}
	players, err := game.PlayersFromDocuments(docs)
	if err != nil {
		return nil, game.Wrap("fetch players", err)
	}
	return players, nil
}

func (m *Manager) evaluate(room *game.Room, players []game.Player) game.StartGate {
	return game.EvaluateStart(players, room.MinCapacity, room.MaxCapacity, m.now(), m.window)
}

// listen starts the player list subscription and the room lifecycle watcher
// for sess. Both are released by teardown. sess must already be current.
func (m *Manager) listen(sess *session) error {
	ctx, cancel := context.WithCancel(context.Background())
	roomID := sess.room.ID

	list, err := m.store.WatchCollection(ctx, store.PlayersPath(roomID))
	if err != nil {
		cancel()
		return game.FromStore("listen players", err)
	}
	done := make(chan struct{})
	go m.listenPlayers(sess, list, done)

	watcher := NewWatcher(m.store, m.log)
	err = watcher.Start(ctx, roomID, func(err error) {
		m.log.Info("room closed by host", zap.String("room_id", roomID))
		m.pub.Publish(events.NewRoomClosed(roomID))
		m.teardown(sess)
	})
	if err != nil {
		list.Stop()
		<-done
		cancel()
		return err
	}

	bg := background{cancel: cancel, list: list, watcher: watcher, done: done}
	m.mu.Lock()
	current := m.sess == sess
	sess.bg = bg
	m.mu.Unlock()
	if !current {
		// torn down while starting up
		bg.stop()
	}
	return nil
}

func (m *Manager) listenPlayers(sess *session, list *store.Watch[store.CollectionEvent], done chan struct{}) {
	defer close(done)
	roomID := sess.room.ID

	for ev := range list.Events() {
		if ev.Err != nil {
			err := game.FromStore("listen players", ev.Err)
			m.log.Warn("player list update failed", zap.String("room_id", roomID), zap.Error(err))
			m.pub.Publish(events.NewFailure(roomID, "listen players", err))
			continue
		}
		players, err := game.PlayersFromDocuments(ev.Documents)
		if err != nil {
			m.log.Warn("undecodable player list", zap.String("room_id", roomID), zap.Error(err))
			m.pub.Publish(events.NewFailure(roomID, "listen players", game.Wrap("listen players", err)))
			continue
		}
		gate := m.evaluate(sess.room, players)

		m.mu.Lock()
		if m.sess != sess {
			m.mu.Unlock()
			return
		}
		sess.players = players
		sess.gate = gate
		m.mu.Unlock()

		m.pub.Publish(events.NewPlayerListUpdated(roomID, players, gate))
	}
}

// teardown stops every background task of sess. Only the first caller for
// a given session does any work.
func (m *Manager) teardown(sess *session) bool {
	m.mu.Lock()
	if m.sess != sess {
		m.mu.Unlock()
		return false
	}
	m.sess = nil
	bg := sess.bg
	m.mu.Unlock()

	m.tracker.Stop()
	bg.stop()
	return true
}

func (b background) stop() {
	if b.list == nil {
		return
	}
	b.watcher.Stop()
	b.list.Stop()
	b.cancel()
	<-b.done
}

// ToggleReady flips the caller's ready flag and returns the new value.
func (m *Manager) ToggleReady(ctx context.Context) (bool, error) {
	const op = "toggle ready"
	m.mu.Lock()
	sess := m.sess
	if sess == nil {
		m.mu.Unlock()
		return false, game.Wrap(op, game.ErrNotJoined)
	}
	ready := !sess.ready
	roomID := sess.room.ID
	m.mu.Unlock()

	err := m.store.Update(ctx, store.PlayerPath(roomID, m.identity), store.Data{"isReady": ready})
	if err != nil {
		return !ready, game.FromStore(op, err)
	}

	m.mu.Lock()
	sess.ready = ready
	m.mu.Unlock()
	m.log.Debug("ready toggled", zap.String("room_id", roomID), zap.Bool("ready", ready))
	return ready, nil
}

// LeaveRoom stops every background task and removes the caller from the
// room. A host leaving deletes the room with every record under it; anyone
// else deletes only their own record.
func (m *Manager) LeaveRoom(ctx context.Context) error {
	const op = "leave room"
	m.mu.Lock()
	sess := m.sess
	m.mu.Unlock()
	if sess == nil {
		return game.Wrap(op, game.ErrNotJoined)
	}
	if !m.teardown(sess) {
		return game.Wrap(op, game.ErrNotJoined)
	}

	roomID := sess.room.ID
	target := store.PlayerPath(roomID, m.identity)
	if sess.isHost {
		target = store.RoomPath(roomID)
	}
	if err := m.store.Delete(ctx, target); err != nil {
		return game.FromStore(op, err)
	}

	m.metrics.Leave(sess.isHost)
	m.log.Info("left room", zap.String("room_id", roomID), zap.Bool("host", sess.isHost))
	return nil
}

// Close releases background tasks without touching the store.
func (m *Manager) Close() {
	m.mu.Lock()
	sess := m.sess
	m.mu.Unlock()
	if sess != nil {
		m.teardown(sess)
	}
}

// Room returns the joined room, or nil.
func (m *Manager) Room() *game.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil
	}
	r := *m.sess.room
	return &r
}

func (m *Manager) IsHost() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess != nil && m.sess.isHost
}

func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess != nil && m.sess.ready
}

// Players returns the latest player list snapshot.
func (m *Manager) Players() []game.Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil
	}
	return append([]game.Player(nil), m.sess.players...)
}

// Gate re-evaluates the start gate on the latest snapshot at the current
// time, so a heartbeat going stale is noticed without a new snapshot.
func (m *Manager) Gate() game.StartGate {
	m.mu.Lock()
	sess := m.sess
	var players []game.Player
	if sess != nil {
		players = append(players, sess.players...)
	}
	m.mu.Unlock()
	if sess == nil {
		return game.StartGate{}
	}
	return m.evaluate(sess.room, players)
}

func containsPlayer(docs []store.Document, name string) bool {
	for _, doc := range docs {
		if doc.ID == name {
			return true
		}
	}
	return false
}

func joinOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, game.ErrWrongPassword) {
		return "wrong_password"
	}
	return game.KindOf(err).String()
}
