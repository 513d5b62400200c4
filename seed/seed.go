// Package seed loads demo users into the database.
package seed

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-tiltguard"
	"github.com/goliatone/go-tiltguard/auth"
	"github.com/goliatone/go-tiltguard/users"
)

// Store is the persistence the seeder writes to
type Store interface {
	Users() auth.Users
	DeleteAllUsers(ctx context.Context) (int, error)
}

// Fixture is one demo user
type Fixture struct {
	Name     string `yaml:"nombre"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"rol"`
	Active   *bool  `yaml:"activo"`
	Phone    string `yaml:"telefono"`
	Address  string `yaml:"direccion"`
	City     string `yaml:"ciudad"`
	Country  string `yaml:"pais"`
}

// FixtureSet is the document layout of a fixtures file. Password is the
// default for users that do not set their own.
type FixtureSet struct {
	Password string    `yaml:"password"`
	Users    []Fixture `yaml:"users"`
}

// Options control a seed run
type Options struct {
	// Clean deletes every user, and their dependent rows, first
	Clean bool
}

// Result summarizes a seed run
type Result struct {
	Removed int
	Created []string
	Skipped []string
}

// Parse reads a fixtures document
func Parse(raw []byte) (FixtureSet, error) {
	var set FixtureSet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return set, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid fixtures file")
	}
	for i := range set.Users {
		if set.Users[i].Password == "" {
			set.Users[i].Password = set.Password
		}
	}
	return set, nil
}

// Seeder inserts fixtures
type Seeder struct {
	store    Store
	fixtures []byte
	region   string
	logger   auth.Logger
}

// New creates a seeder using the embedded demo users
func New(store Store) *Seeder {
	return &Seeder{
		store:    store,
		fixtures: tiltguard.UserFixtures(),
		region:   users.DefaultRegion,
		logger:   auth.NoopLogger{},
	}
}

// WithFixtures replaces the embedded fixtures document
func (s *Seeder) WithFixtures(raw []byte) *Seeder {
	s.fixtures = raw
	return s
}

func (s *Seeder) WithRegion(region string) *Seeder {
	if region != "" {
		s.region = region
	}
	return s
}

func (s *Seeder) WithLogger(logger auth.Logger) *Seeder {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Run inserts every fixture whose email is not taken yet. Ids are derived
// from the email so running it twice yields the same records.
func (s *Seeder) Run(ctx context.Context, opts Options) (Result, error) {
	var res Result

	set, err := Parse(s.fixtures)
	if err != nil {
		return res, err
	}

	if opts.Clean {
		n, err := s.store.DeleteAllUsers(ctx)
		if err != nil {
			return res, err
		}
		res.Removed = n
		s.logger.Info("removed existing users", "count", n)
	}

	for _, f := range set.Users {
		user, err := s.build(f)
		if err != nil {
			return res, err
		}

		if _, err := s.store.Users().GetByIdentifier(ctx, user.Email); err == nil {
			res.Skipped = append(res.Skipped, user.Email)
			s.logger.Debug("seed user exists", "email", user.Email)
			continue
		} else if !auth.IsNotFound(err) {
			return res, err
		}

		if _, err := s.store.Users().Create(ctx, user); err != nil {
			return res, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create seed user").
				WithMetadata(map[string]any{"email": user.Email})
		}
		res.Created = append(res.Created, user.Email)
		s.logger.Info("seed user created", "email", user.Email, "role", string(user.Role))
	}

	return res, nil
}

func (s *Seeder) build(f Fixture) (*auth.User, error) {
	email := auth.NormalizeEmail(f.Email)
	if email == "" || strings.TrimSpace(f.Name) == "" {
		return nil, goerrors.New("fixture needs nombre and email", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"email": f.Email})
	}

	role := auth.RoleUser
	if f.Role != "" {
		r, err := auth.ParseRole(f.Role)
		if err != nil {
			return nil, err
		}
		role = r
	}

	id, err := hashid.NewUUID(email)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive user id")
	}

	hash, err := auth.HashPassword(f.Password)
	if err != nil {
		return nil, err
	}

	phone := ""
	if strings.TrimSpace(f.Phone) != "" {
		phone, err = users.NormalizePhone(f.Phone, s.region)
		if err != nil {
			return nil, err
		}
	}

	active := true
	if f.Active != nil {
		active = *f.Active
	}

	return &auth.User{
		ID:           id,
		Name:         strings.TrimSpace(f.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       active,
		Phone:        phone,
		Address:      f.Address,
		City:         f.City,
		Country:      f.Country,
	}, nil
}
