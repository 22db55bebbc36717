package fakeapi

import "github.com/rs/zerolog"

// Account is a seeded user that can sign in.
type Account struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
	Role      string
}

// Options configures a Server.
type Options struct {
	Admin        Account
	DemoLeads    int
	DefaultLimit int
	MaxLimit     int
	Logger       zerolog.Logger
}

// OptionFn mutates Options.
type OptionFn func(*Options)

// DefaultOptions returns the demo defaults.
func DefaultOptions() Options {
	return Options{
		Admin: Account{
			FirstName: "Demo",
			LastName:  "Admin",
			Email:     "admin@example.com",
			Password:  "Admin123!",
			Phone:     "5550000000",
			Role:      "SuperAdmin",
		},
		DefaultLimit: 10,
		MaxLimit:     100,
		Logger:       zerolog.Nop(),
	}
}

// NewOptions applies fns over the defaults.
func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	return opts
}

// WithAdmin replaces the seeded account.
func WithAdmin(account Account) OptionFn {
	return func(o *Options) {
		o.Admin = account
	}
}

// WithDemoLeads seeds n generated leads.
func WithDemoLeads(n int) OptionFn {
	return func(o *Options) {
		o.DemoLeads = n
	}
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) OptionFn {
	return func(o *Options) {
		o.Logger = logger
	}
}
