package main

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type UserServiceProvider interface {
	Add(ctx context.Context, req UserRequest) (User, error)
}

type UserService struct {
	logger   *zap.Logger
	config   *Config
	clock    Clocker
	storage  UserStorage
	validate *validator.Validate
}

// NewUserService provides the users registry.
func NewUserService(logger *zap.Logger, config *Config, clock Clocker, storage UserStorage) UserServiceProvider {
	return &UserService{
		logger:   logger,
		config:   config,
		clock:    clock,
		storage:  storage,
		validate: newRequestValidator(),
	}
}

// newRequestValidator reports fields under their json names.
func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct turns validator failures into a *ValidationError.
func validateStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var errs error
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			errs = multierr.Append(errs, missingFieldError(fe.Field()))
		case "max":
			errs = multierr.Append(errs, invalidFieldError{fe.Field(), "must be at most " + fe.Param() + " characters"})
		default:
			errs = multierr.Append(errs, invalidFieldError{fe.Field(), "is invalid"})
		}
	}
	return &ValidationError{err: errs}
}

// Add registers a new user. Emails are compared case-insensitively.
func (us *UserService) Add(ctx context.Context, req UserRequest) (User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Password = strings.TrimSpace(req.Password)

	if err := validateStruct(us.validate, req); err != nil {
		return User{}, err
	}

	exists, err := us.storage.Exists(ctx, req.Username, req.Email)
	if err != nil {
		return User{}, fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists {
		return User{}, ErrUserConflict
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), us.config.Users.PasswordCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return User{}, &ValidationError{err: invalidFieldError{"password", "must be at most 72 characters"}}
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := us.storage.Add(ctx, User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    stamp(us.clock),
	})
	if errors.Is(err, ErrUserConflict) {
		return User{}, ErrUserConflict
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to add user: %w", err)
	}
	return user, nil
}
