// Package memory is an in-process implementation of the repository
// interfaces. It backs single-node development runs and tests.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/domain"
)

// taskRow keeps insertion order so listings are stable.
type taskRow struct {
	task domain.Task
	seq  int64
}

type memberKey struct {
	projectID uuid.UUID
	userID    uuid.UUID
}

// Store holds every table behind one lock so joins and multi-row writes
// observe a consistent view.
type Store struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]domain.User
	oauthLinks  map[string]domain.UserOAuthLink // provider + ":" + providerID
	apiKeys     map[uuid.UUID]domain.APIKey
	projects    map[uuid.UUID]domain.Project
	members     map[memberKey]domain.ProjectMember
	tasks       map[uuid.UUID]taskRow
	seq         int64
	invitations map[uuid.UUID]domain.ProjectInvitation
	audit       []domain.AuditEntry
}

func New() *Store {
	return &Store{
		users:       make(map[uuid.UUID]domain.User),
		oauthLinks:  make(map[string]domain.UserOAuthLink),
		apiKeys:     make(map[uuid.UUID]domain.APIKey),
		projects:    make(map[uuid.UUID]domain.Project),
		members:     make(map[memberKey]domain.ProjectMember),
		tasks:       make(map[uuid.UUID]taskRow),
		invitations: make(map[uuid.UUID]domain.ProjectInvitation),
	}
}

func (s *Store) Users() domain.UserRepository             { return &userRepo{s: s} }
func (s *Store) Projects() domain.ProjectRepository       { return &projectRepo{s: s} }
func (s *Store) Members() domain.MemberRepository         { return &memberRepo{s: s} }
func (s *Store) Tasks() domain.TaskRepository             { return &taskRepo{s: s} }
func (s *Store) Invitations() domain.InvitationRepository { return &invitationRepo{s: s} }
func (s *Store) Audit() domain.AuditRepository            { return &auditRepo{s: s} }

// summaryLocked returns the public view of a user. Caller holds s.mu.
func (s *Store) summaryLocked(id uuid.UUID) *domain.UserSummary {
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	return u.Summary()
}
