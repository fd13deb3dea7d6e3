package repositories

import "context"

// Repository aggregates every store the service needs
type Repository interface {
	// Registry
	Student() StudentRepository

	// Ledgers
	Marks() MarksRepository
	Attendance() AttendanceRepository

	// Identity
	User() UserRepository
	Group() GroupRepository
	Session() SessionRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager manages repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
