// Package storage exports collection and run results to disk.
//
// The Manager writes JSON result files under a base directory, one
// subdirectory per account, using atomic temp-file-and-rename writes so a
// crash never leaves a partial file behind.
//
// Usage:
//
//	manager, err := storage.NewManager(cfg.Output.BaseDirectory, cfg.Output.PrettyJSON)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	path, err := manager.SaveRun(account, "like", result)
package storage
