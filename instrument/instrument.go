package instrument

import (
	"context"
	"fmt"
)

// Config is everything a base constructor needs to open one instrument.
type Config struct {
	Name    string
	Address string
	Model   string
	Bounds  Bounds
	Options Options
}

func (c Config) String() string {
	return fmt.Sprintf("%s[name=%q, addr=%q]", c.Model, c.Name, c.Address)
}

// Handle is an opened instrument.
type Handle interface {
	Name() string
	Address() string
	Model() string
	Bounds() Bounds
	Close() error
	String() string
}

// Constructor opens instruments. It is the base every model delegates to.
type Constructor interface {
	Construct(ctx context.Context, cfg Config) (Handle, error)
}

// ConstructorFunc adapts a function to Constructor.
type ConstructorFunc func(ctx context.Context, cfg Config) (Handle, error)

func (f ConstructorFunc) Construct(ctx context.Context, cfg Config) (Handle, error) {
	return f(ctx, cfg)
}

// Factory turns a textual spec into a validated Config without touching the instrument.
type Factory interface {
	FromSpec(spec Spec) (Config, error)
}

type FactoryDocs interface {
	Help() string
}

// StateReader is implemented by handles able to report their current settings.
type StateReader interface {
	ReadState(ctx context.Context) (State, error)
}
