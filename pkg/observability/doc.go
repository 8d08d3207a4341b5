/*
Package observability turns engine lifecycle hooks into Prometheus metrics and
structured log lines.

	metrics := observability.NewMetrics("paneltree")
	engine, _ := paneltree.New(paneltree.WithLifecycleHooks(
		domain.ChainHooks(metrics.Hooks(), observability.LogHooks(logger)),
	))
	http.Handle("/metrics", metrics.Handler())
*/
package observability
