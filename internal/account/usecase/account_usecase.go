// Package usecase implements the account business logic.
package usecase

import (
	"context"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/tokenvault/tokenvault/internal/account/domain"
	"github.com/tokenvault/tokenvault/internal/metrics"
	appValidation "github.com/tokenvault/tokenvault/internal/validation"
)

// RegisterInput contains the input data for account registration. Access is
// the raw level requested on the wire; out-of-range values coerce to none.
type RegisterInput struct {
	Username string
	Password string
	Access   int
}

// UseCase defines the account business logic operations.
type UseCase interface {
	Register(ctx context.Context, input RegisterInput) (domain.User, error)
	Login(ctx context.Context, username, password string) (domain.User, error)
}

// UserRepository defines the registry operations the use case depends on.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByCredentials(ctx context.Context, username, password string) (domain.User, error)
}

// AccountUseCase handles registration and login against the user registry.
type AccountUseCase struct {
	userRepo UserRepository
	metrics  metrics.BusinessMetrics
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(userRepo UserRepository, businessMetrics metrics.BusinessMetrics) *AccountUseCase {
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	return &AccountUseCase{
		userRepo: userRepo,
		metrics:  businessMetrics,
	}
}

// validateRegisterInput checks the registration payload. The username policy
// (length, allowed characters) is enforced client-side; the registry only
// requires non-blank fields.
func (uc *AccountUseCase) validateRegisterInput(input RegisterInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Username,
			validation.Required.Error("username is required"),
			appValidation.NotBlank,
		),
		validation.Field(&input.Password,
			validation.Required.Error("password is required"),
			appValidation.NotBlank,
		),
	)
	return appValidation.WrapValidationError(err)
}

// Register creates a new user. The duplicate-username check and the insert
// are one critical section inside the repository, so concurrent registrations
// of the same username yield exactly one success.
func (uc *AccountUseCase) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	start := time.Now()

	if err := uc.validateRegisterInput(input); err != nil {
		uc.record(ctx, "register", start, err)
		return domain.User{}, err
	}

	user := domain.NewUser(input.Username, input.Password, domain.NewAccessLevel(input.Access))
	if err := uc.userRepo.Create(ctx, user); err != nil {
		uc.record(ctx, "register", start, err)
		return domain.User{}, err
	}

	uc.record(ctx, "register", start, nil)
	return user, nil
}

// Login finds a user by exact match on username and password.
func (uc *AccountUseCase) Login(ctx context.Context, username, password string) (domain.User, error) {
	start := time.Now()

	user, err := uc.userRepo.GetByCredentials(ctx, username, password)
	uc.record(ctx, "login", start, err)
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (uc *AccountUseCase) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	uc.metrics.RecordOperation(ctx, "account", operation, status)
	uc.metrics.RecordDuration(ctx, "account", operation, time.Since(start), status)
}
