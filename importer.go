package main

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"katara/pkg/reconcile"
)

// importKinds maps a drop-file name to the entity kind it carries. Files with
// any other name are ignored.
var importKinds = map[string]reconcile.Kind{
	"users.json":       reconcile.KindUsers,
	"departments.json": reconcile.KindDepartments,
	"bisnis.json":      reconcile.KindBusinesses,
	"limits.json":      reconcile.KindLimits,
	"submissions.json": reconcile.KindSubmissions,
}

// watchImportDir ingests JSON drop files from dir: each file holds an array
// of raw rows in whatever column naming the exporter used, and goes through
// the same normalization as a remote reload. Events are debounced so a file
// is only read once its writer has gone quiet. Runs until the watcher fails.
func watchImportDir(dir string, state *AppState) error {
	// catch up on files dropped while the service was down
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			processImportFile(dir, e.Name(), state)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("watching import directory %s (debounced)", dir)

	// simple debounce map of pending files
	pending := map[string]time.Time{}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				name := filepath.Base(ev.Name)
				if _, known := importKinds[strings.ToLower(name)]; known {
					pending[name] = time.Now()
				}
			}
		case <-ticker.C:
			now := time.Now()
			for name, t := range pending {
				if now.Sub(t) > 300*time.Millisecond { // stable
					delete(pending, name)
					processImportFile(dir, name, state)
				}
			}
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("import watcher error: %v", werr)
		}
	}
}

// processImportFile reconciles one drop file into the live snapshot and
// renames it so it is not picked up again.
func processImportFile(dir, name string, state *AppState) {
	kind, ok := importKinds[strings.ToLower(name)]
	if !ok {
		return
	}
	path := filepath.Join(dir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Printf("import %s: read failed: %v", name, err)
		return
	}
	var rows []reconcile.Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		log.Printf("import %s: malformed JSON: %v", name, err)
		return
	}

	var count int
	switch kind {
	case reconcile.KindUsers:
		count = state.ImportUsers(reconcile.Users(rows))
	case reconcile.KindDepartments:
		count = state.ImportDepartments(reconcile.Departments(rows))
	case reconcile.KindBusinesses:
		count = state.ImportBusinesses(reconcile.Businesses(rows))
	case reconcile.KindLimits:
		count = state.ImportLimits(reconcile.Limits(rows))
	case reconcile.KindSubmissions:
		count = state.ImportSubmissions(reconcile.Submissions(rows))
	}
	log.Printf("import %s: merged %d records", name, count)

	done := path + ".done"
	if err := os.Rename(path, done); err != nil {
		log.Printf("import %s: rename failed: %v", name, err)
	}
}
