// Package bootstrap runs a service through its lifecycle: components start,
// configuration callbacks wire the business layer, components registered
// during configuration start, and everything stops in reverse order on
// SIGINT or SIGTERM.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(database.NewComponent(cfg.Database, nil))
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    // build services, register routes, register the server component
//	    return nil
//	})
//	err = app.Run(ctx)
package bootstrap
