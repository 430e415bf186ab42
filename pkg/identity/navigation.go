package identity

// NavigateToLogin records the current path and pushes path. Navigating to
// the current path is a no-op, which stops redirect loops on the login page.
func (o *Orchestrator) NavigateToLogin(path string) error {
	f := o.begin("navigate", false)
	if o.router == nil {
		err := ErrNoRouter.WithOperation(f.op)
		o.emit(f, err, "cannot navigate")
		return err
	}

	last := o.router.Path()
	o.emit(f, nil, "navigate", "last_page", last, "path", path)
	if path == last {
		return nil
	}

	o.store.Apply(func(s *State) { s.LastRoute = last })
	o.router.Push(path)
	return nil
}

// NavigateOnSuccess goes back to the page recorded by the last login
// redirect. It pops the history instead of pushing.
func (o *Orchestrator) NavigateOnSuccess() error {
	f := o.begin("navigate", false)
	if o.store.Snapshot().LastRoute == "" {
		return nil
	}
	if o.router == nil {
		err := ErrNoRouter.WithOperation(f.op)
		o.emit(f, err, "cannot navigate")
		return err
	}

	o.store.Apply(func(s *State) { s.LastRoute = "" })
	o.router.Back()
	return nil
}
