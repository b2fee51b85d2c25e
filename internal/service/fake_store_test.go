package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lshigami/Symposium/internal/model"
	"github.com/lshigami/Symposium/internal/notify"
	"github.com/lshigami/Symposium/internal/repository"
)

// memDB is an in-memory Store. It enforces the same unique keys as the
// database. Transactions are not rolled back.
type memDB struct {
	mu           sync.Mutex
	nextID       uint
	events       map[uint]model.Event
	rounds       map[uint]model.Round
	questions    map[uint]model.Question
	deletedQs    map[uint]bool
	attempts     map[uint]model.TestAttempt
	answers      map[uint]model.Answer
	participants map[uint]model.Participant
}

func newMemStore() *memStore {
	return &memStore{db: &memDB{
		events:       map[uint]model.Event{},
		rounds:       map[uint]model.Round{},
		questions:    map[uint]model.Question{},
		deletedQs:    map[uint]bool{},
		attempts:     map[uint]model.TestAttempt{},
		answers:      map[uint]model.Answer{},
		participants: map[uint]model.Participant{},
	}}
}

func (d *memDB) id() uint {
	d.nextID++
	return d.nextID
}

type memStore struct {
	db *memDB
}

func (s *memStore) Events() repository.EventRepository             { return memEvents{s.db} }
func (s *memStore) Rounds() repository.RoundRepository             { return memRounds{s.db} }
func (s *memStore) Questions() repository.QuestionRepository       { return memQuestions{s.db} }
func (s *memStore) Attempts() repository.TestAttemptRepository     { return memAttempts{s.db} }
func (s *memStore) Answers() repository.AnswerRepository           { return memAnswers{s.db} }
func (s *memStore) Participants() repository.ParticipantRepository { return memParticipants{s.db} }

func (s *memStore) Transaction(_ context.Context, fn func(tx repository.Store) error) error {
	return fn(s)
}

// seed helpers

func (s *memStore) addEvent(title string) model.Event {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e := model.Event{ID: s.db.id(), Title: title}
	s.db.events[e.ID] = e
	return e
}

func (s *memStore) addRound(r model.Round) model.Round {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r.ID = s.db.id()
	if r.Status == "" {
		r.Status = model.RoundNotStarted
	}
	s.db.rounds[r.ID] = r
	return r
}

func (s *memStore) addQuestion(q model.Question) model.Question {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q.ID = s.db.id()
	s.db.questions[q.ID] = q
	return q
}

func (s *memStore) attempt(id uint) model.TestAttempt {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.attempts[id]
}

func (s *memStore) attemptCount() int {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return len(s.db.attempts)
}

func (s *memStore) participant(eventID, userID uint) (model.Participant, bool) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, p := range s.db.participants {
		if p.EventID == eventID && p.UserID == userID {
			return p, true
		}
	}
	return model.Participant{}, false
}

func (s *memStore) setRound(r model.Round) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.rounds[r.ID] = r
}

func (s *memStore) dropRound(id uint) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.rounds, id)
}

func (s *memStore) putAttempt(a model.TestAttempt) model.TestAttempt {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.db.id()
	}
	s.db.attempts[a.ID] = a
	return a
}

// events

type memEvents struct{ db *memDB }

func (r memEvents) Create(_ context.Context, e *model.Event) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e.ID = r.db.id()
	r.db.events[e.ID] = *e
	return nil
}

func (r memEvents) FindByID(_ context.Context, id uint) (*model.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r memEvents) FindAll(_ context.Context) ([]model.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]model.Event, 0, len(r.db.events))
	for _, e := range r.db.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// rounds

type memRounds struct{ db *memDB }

func (r memRounds) Create(_ context.Context, round *model.Round) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	round.ID = r.db.id()
	r.db.rounds[round.ID] = *round
	return nil
}

func (r memRounds) FindByID(_ context.Context, id uint) (*model.Round, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	round, ok := r.db.rounds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &round, nil
}

func (r memRounds) FindByEventID(_ context.Context, eventID uint) ([]model.Round, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Round
	for _, round := range r.db.rounds {
		if round.EventID == eventID {
			out = append(out, round)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memRounds) FindByEventWithQuestionCount(ctx context.Context, eventID uint) ([]repository.RoundWithQuestionCount, error) {
	rounds, _ := r.FindByEventID(ctx, eventID)
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]repository.RoundWithQuestionCount, 0, len(rounds))
	for _, round := range rounds {
		n := 0
		for id, q := range r.db.questions {
			if q.RoundID == round.ID && !r.db.deletedQs[id] {
				n++
			}
		}
		out = append(out, repository.RoundWithQuestionCount{Round: round, QuestionCount: n})
	}
	return out, nil
}

func (r memRounds) Update(_ context.Context, round *model.Round) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.rounds[round.ID] = *round
	return nil
}

func (r memRounds) Delete(_ context.Context, id uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.rounds[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.rounds, id)
	return nil
}

// questions

type memQuestions struct{ db *memDB }

func (r memQuestions) Create(_ context.Context, q *model.Question) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	q.ID = r.db.id()
	r.db.questions[q.ID] = *q
	return nil
}

func (r memQuestions) FindByID(_ context.Context, id uint) (*model.Question, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	q, ok := r.db.questions[id]
	if !ok || r.db.deletedQs[id] {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (r memQuestions) FindByRoundID(_ context.Context, roundID uint) ([]model.Question, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Question
	for id, q := range r.db.questions {
		if q.RoundID == roundID && !r.db.deletedQs[id] {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memQuestions) Update(_ context.Context, q *model.Question) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.questions[q.ID] = *q
	return nil
}

func (r memQuestions) Delete(_ context.Context, id uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.questions[id]; !ok || r.db.deletedQs[id] {
		return repository.ErrNotFound
	}
	r.db.deletedQs[id] = true
	return nil
}

func (r memQuestions) DeleteByRoundID(_ context.Context, roundID uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, q := range r.db.questions {
		if q.RoundID == roundID {
			delete(r.db.questions, id)
			delete(r.db.deletedQs, id)
		}
	}
	return nil
}

// attempts

type memAttempts struct{ db *memDB }

func cloneAttempt(a model.TestAttempt) model.TestAttempt {
	a.ViolationLogs = append([]model.ViolationLog{}, a.ViolationLogs...)
	a.Round = nil
	a.Answers = nil
	return a
}

func (r memAttempts) Create(_ context.Context, a *model.TestAttempt) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.attempts {
		if existing.UserID == a.UserID && existing.RoundID == a.RoundID {
			return repository.ErrDuplicate
		}
	}
	a.ID = r.db.id()
	r.db.attempts[a.ID] = cloneAttempt(*a)
	return nil
}

func (r memAttempts) Update(_ context.Context, a *model.TestAttempt) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.attempts[a.ID] = cloneAttempt(*a)
	return nil
}

func (r memAttempts) FindByID(_ context.Context, id uint) (*model.TestAttempt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.attempts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a = cloneAttempt(a)
	return &a, nil
}

func (r memAttempts) FindByIDForUpdate(ctx context.Context, id uint) (*model.TestAttempt, error) {
	return r.FindByID(ctx, id)
}

func (r memAttempts) FindByUserAndRound(_ context.Context, userID, roundID uint) (*model.TestAttempt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.attempts {
		if a.UserID == userID && a.RoundID == roundID {
			a = cloneAttempt(a)
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memAttempts) FindCompletedByRound(_ context.Context, roundID uint) ([]model.TestAttempt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.TestAttempt
	for _, a := range r.db.attempts {
		if a.RoundID == roundID && a.Status == model.AttemptCompleted {
			out = append(out, cloneAttempt(a))
		}
	}
	// map order on purpose: the service must rank on its own
	return out, nil
}

func (r memAttempts) FindInProgress(_ context.Context) ([]model.TestAttempt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.TestAttempt
	for _, a := range r.db.attempts {
		if a.Status == model.AttemptInProgress {
			c := cloneAttempt(a)
			if round, ok := r.db.rounds[a.RoundID]; ok {
				c.Round = &round
			}
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memAttempts) AppendViolation(_ context.Context, id uint, entry model.ViolationLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.attempts[id]
	if !ok || a.Status != model.AttemptInProgress {
		return repository.ErrNotFound
	}
	a.ViolationLogs = append(append([]model.ViolationLog{}, a.ViolationLogs...), entry)
	switch entry.Type {
	case model.ViolationTabSwitch:
		a.TabSwitchCount++
	case model.ViolationRefresh:
		a.RefreshAttemptCount++
	}
	r.db.attempts[id] = a
	return nil
}

func (r memAttempts) DeleteByRoundID(_ context.Context, roundID uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, a := range r.db.attempts {
		if a.RoundID != roundID {
			continue
		}
		for ansID, ans := range r.db.answers {
			if ans.TestAttemptID == id {
				delete(r.db.answers, ansID)
			}
		}
		delete(r.db.attempts, id)
	}
	return nil
}

// answers

type memAnswers struct{ db *memDB }

func (r memAnswers) Upsert(_ context.Context, a *model.Answer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, existing := range r.db.answers {
		if existing.TestAttemptID == a.TestAttemptID && existing.QuestionID == a.QuestionID {
			existing.Answer = a.Answer
			existing.UpdatedAt = time.Now()
			r.db.answers[id] = existing
			a.ID = id
			return nil
		}
	}
	a.ID = r.db.id()
	a.IsCorrect = false
	a.PointsAwarded = 0
	r.db.answers[a.ID] = *a
	return nil
}

func (r memAnswers) FindByAttemptAndQuestion(_ context.Context, attemptID, questionID uint) (*model.Answer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.answers {
		if a.TestAttemptID == attemptID && a.QuestionID == questionID {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memAnswers) FindByAttemptID(_ context.Context, attemptID uint) ([]model.Answer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Answer
	for _, a := range r.db.answers {
		if a.TestAttemptID == attemptID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memAnswers) SaveGrades(_ context.Context, answers []model.Answer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range answers {
		existing, ok := r.db.answers[a.ID]
		if !ok {
			continue
		}
		existing.IsCorrect = a.IsCorrect
		existing.PointsAwarded = a.PointsAwarded
		r.db.answers[a.ID] = existing
	}
	return nil
}

// participants

type memParticipants struct{ db *memDB }

func (r memParticipants) Create(_ context.Context, p *model.Participant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.participants {
		if existing.EventID == p.EventID && existing.UserID == p.UserID {
			return repository.ErrDuplicate
		}
	}
	p.ID = r.db.id()
	r.db.participants[p.ID] = *p
	return nil
}

func (r memParticipants) Save(_ context.Context, p *model.Participant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.participants[p.ID] = *p
	return nil
}

func (r memParticipants) FindByEventAndUser(_ context.Context, eventID, userID uint) (*model.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.participants {
		if p.EventID == eventID && p.UserID == userID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memParticipants) FindByEventID(_ context.Context, eventID uint) ([]model.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Participant
	for _, p := range r.db.participants {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// collaborators

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
	topics   []string
}

func (n *recordingNotifier) Broadcast(topic string, msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.topics = append(n.topics, topic)
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.messages))
	for _, m := range n.messages {
		out = append(out, m.Type)
	}
	return out
}

// lockAwareNotifier records how many keyed locks were held at each broadcast.
type lockAwareNotifier struct {
	recordingNotifier
	locks *keyedMutex
	held  []int
}

func (n *lockAwareNotifier) Broadcast(topic string, msg notify.Message) {
	held := n.locks.size()
	n.recordingNotifier.Broadcast(topic, msg)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.held = append(n.held, held)
}

func (n *lockAwareNotifier) heldCounts() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int(nil), n.held...)
}

type recordingMail struct {
	mu    sync.Mutex
	mails []notify.Mail
}

func (m *recordingMail) SendAsync(mails ...notify.Mail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mails = append(m.mails, mails...)
}

func (m *recordingMail) sent() []notify.Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Mail(nil), m.mails...)
}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func strPtr(s string) *string { return &s }
