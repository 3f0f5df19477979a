// Package health reports the health of a running formatkit process.
//
// A Monitor holds named checks, evaluated every time a report is requested,
// and static statuses pushed by their owners. Report aggregates both into a
// single Status:
//
//   - healthy when every part is healthy
//   - degraded when no part is unhealthy but at least one is degraded
//   - unhealthy when any part is unhealthy
//
// Messages of parts that are not healthy are sanitized before they leave the
// process: URLs, paths, IP addresses, ports and credentials are replaced with
// placeholders.
//
//	monitor := health.NewMonitor()
//	monitor.Register("registry", func() health.Status {
//		if reg.Len() == 0 {
//			return health.NewDegraded("registry", "no conversions registered")
//		}
//		return health.NewHealthy("registry", "ready")
//	})
//	status := monitor.Report("formatkit")
package health
