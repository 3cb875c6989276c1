package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go-mod.ewintr.nl/mediasync/model"
)

// Memory holds the catalogue in mutex-guarded maps. It enforces the same
// uniqueness constraints as the postgres implementation, so sync workers see
// identical conflict behavior in tests.
type Memory struct {
	mu            sync.RWMutex
	subscriptions map[uuid.UUID]model.Subscription
	videos        map[uuid.UUID]model.Video
	jobs          map[uuid.UUID]model.JobExecution
	messages      map[uuid.UUID][]model.JobMessage
}

func NewMemory() *Memory {
	return &Memory{
		subscriptions: make(map[uuid.UUID]model.Subscription),
		videos:        make(map[uuid.UUID]model.Video),
		jobs:          make(map[uuid.UUID]model.JobExecution),
		messages:      make(map[uuid.UUID][]model.JobMessage),
	}
}

type MemorySubscriptionRepository struct {
	mem *Memory
}

func NewMemorySubscriptionRepository(mem *Memory) *MemorySubscriptionRepository {
	return &MemorySubscriptionRepository{mem: mem}
}

func (m *MemorySubscriptionRepository) Save(sub *model.Subscription) error {
	m.mem.mu.Lock()
	defer m.mem.mu.Unlock()

	for _, existing := range m.mem.subscriptions {
		if existing.ID != sub.ID && existing.Provider == sub.Provider && existing.ChannelID == sub.ChannelID {
			return ErrConflict
		}
	}
	m.mem.subscriptions[sub.ID] = *sub

	return nil
}

func (m *MemorySubscriptionRepository) Find(id uuid.UUID) (*model.Subscription, error) {
	m.mem.mu.RLock()
	defer m.mem.mu.RUnlock()

	sub, ok := m.mem.subscriptions[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &sub, nil
}

func (m *MemorySubscriptionRepository) FindAll() ([]*model.Subscription, error) {
	m.mem.mu.RLock()
	defer m.mem.mu.RUnlock()

	subs := make([]*model.Subscription, 0, len(m.mem.subscriptions))
	for _, sub := range m.mem.subscriptions {
		sub := sub
		subs = append(subs, &sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Name < subs[j].Name })

	return subs, nil
}

type MemoryVideoRepository struct {
	mem *Memory
}

func NewMemoryVideoRepository(mem *Memory) *MemoryVideoRepository {
	return &MemoryVideoRepository{mem: mem}
}

func (m *MemoryVideoRepository) Save(video *model.Video) error {
	m.mem.mu.Lock()
	defer m.mem.mu.Unlock()

	for _, existing := range m.mem.videos {
		if existing.ID != video.ID && existing.SubscriptionID == video.SubscriptionID && existing.RemoteID == video.RemoteID {
			return ErrConflict
		}
	}
	m.mem.videos[video.ID] = *video

	return nil
}

func (m *MemoryVideoRepository) Find(id uuid.UUID) (*model.Video, error) {
	m.mem.mu.RLock()
	defer m.mem.mu.RUnlock()

	video, ok := m.mem.videos[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &video, nil
}

func (m *MemoryVideoRepository) FindByRemoteID(subscriptionID uuid.UUID, remoteID string) (*model.Video, error) {
	m.mem.mu.RLock()
	defer m.mem.mu.RUnlock()

	for _, video := range m.mem.videos {
		if video.SubscriptionID == subscriptionID && video.RemoteID == remoteID {
			video := video
			return &video, nil
		}
	}

	return nil, ErrNotFound
}

func (m *MemoryVideoRepository) FindBySubscription(subscriptionID uuid.UUID) ([]*model.Video, error) {
	return m.find(func(video model.Video) bool {
		return video.SubscriptionID == subscriptionID
	})
}

func (m *MemoryVideoRepository) FindNew(subscriptionID uuid.UUID) ([]*model.Video, error) {
	return m.find(func(video model.Video) bool {
		return video.SubscriptionID == subscriptionID && video.New
	})
}

func (m *MemoryVideoRepository) find(match func(model.Video) bool) ([]*model.Video, error) {
	m.mem.mu.RLock()
	defer m.mem.mu.RUnlock()

	videos := []*model.Video{}
	for _, video := range m.mem.videos {
		if match(video) {
			video := video
			videos = append(videos, &video)
		}
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].Published.After(videos[j].Published) })

	return videos, nil
}

type MemoryJobRepository struct {
	mem *Memory
}

func NewMemoryJobRepository(mem *Memory) *MemoryJobRepository {
	return &MemoryJobRepository{mem: mem}
}

func (m *MemoryJobRepository) SaveExecution(job *model.JobExecution) error {
	m.mem.mu.Lock()
	defer m.mem.mu.Unlock()

	m.mem.jobs[job.ID] = *job

	return nil
}

func (m *MemoryJobRepository) FindExecution(id uuid.UUID) (*model.JobExecution, error) {
	m.mem.mu.RLock()
	defer m.mem.mu.RUnlock()

	job, ok := m.mem.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &job, nil
}

func (m *MemoryJobRepository) AppendMessage(msg *model.JobMessage) error {
	m.mem.mu.Lock()
	defer m.mem.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	m.mem.messages[msg.JobExecutionID] = append(m.mem.messages[msg.JobExecutionID], *msg)

	return nil
}

func (m *MemoryJobRepository) Messages(jobExecutionID uuid.UUID) ([]*model.JobMessage, error) {
	m.mem.mu.RLock()
	defer m.mem.mu.RUnlock()

	msgs := make([]*model.JobMessage, 0, len(m.mem.messages[jobExecutionID]))
	for _, msg := range m.mem.messages[jobExecutionID] {
		msg := msg
		msgs = append(msgs, &msg)
	}

	return msgs, nil
}
