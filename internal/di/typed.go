package di

import (
	"context"
	"fmt"
)

// Provide declares T in env, built by factory.
func Provide[T any](env *Environment, factory func(ctx context.Context, s *Scope) (T, error), opts ...Option) error {
	return env.Put(ID[T](), wrap(factory), opts...)
}

// ProvideNamed declares the qualified identifier of T in env.
func ProvideNamed[T any](env *Environment, qualifier string, factory func(ctx context.Context, s *Scope) (T, error), opts ...Option) error {
	return env.Put(Named[T](qualifier), wrap(factory), opts...)
}

// ProvideValue declares T with an already constructed value.
func ProvideValue[T any](env *Environment, value T, opts ...Option) error {
	return env.Put(ID[T](), func(context.Context, *Scope) (any, error) {
		return value, nil
	}, opts...)
}

func wrap[T any](factory func(ctx context.Context, s *Scope) (T, error)) Factory {
	if factory == nil {
		return nil
	}
	return func(ctx context.Context, s *Scope) (any, error) {
		v, err := factory(ctx, s)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Get resolves T from env.
func Get[T any](ctx context.Context, env *Environment) (T, error) {
	return cast[T](env.Resolve(ctx, ID[T]()))
}

// GetNamed resolves the qualified identifier of T from env.
func GetNamed[T any](ctx context.Context, env *Environment, qualifier string) (T, error) {
	return cast[T](env.Resolve(ctx, Named[T](qualifier)))
}

// MustGet resolves T from env and panics on error.
func MustGet[T any](ctx context.Context, env *Environment) T {
	v, err := Get[T](ctx, env)
	if err != nil {
		panic(err)
	}
	return v
}

// Resolve resolves T through a factory scope, recording the dependency.
func Resolve[T any](ctx context.Context, s *Scope) (T, error) {
	return cast[T](s.Resolve(ctx, ID[T]()))
}

// ResolveNamed resolves the qualified identifier of T through a scope.
func ResolveNamed[T any](ctx context.Context, s *Scope, qualifier string) (T, error) {
	return cast[T](s.Resolve(ctx, Named[T](qualifier)))
}

func cast[T any](instance any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	v, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("component has unexpected type %T", instance)
	}
	return v, nil
}
