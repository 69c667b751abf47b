package cli

import (
	"turansuraetu/internal/patch"
	"turansuraetu/internal/project"
)

type progressUpdate struct {
	label    string
	fraction float64
}

// runInBackground runs fn on its own goroutine and renders its progress on
// the calling goroutine until fn returns.
func runInBackground(render project.Progress, fn func(project.Progress) error) error {
	updates := make(chan progressUpdate)
	done := make(chan error, 1)

	go func() {
		done <- fn(project.ProgressFunc(func(label string, fraction float64) {
			updates <- progressUpdate{label: label, fraction: fraction}
		}))
		close(updates)
	}()

	for u := range updates {
		render.Report(u.label, u.fraction)
	}
	return <-done
}

func openProject(store *project.Store, path string) (*patch.Project, error) {
	var p *patch.Project
	err := runInBackground(project.LogProgress{}, func(progress project.Progress) error {
		var err error
		p, err = store.Open(path, progress)
		return err
	})
	return p, err
}

func saveProject(store *project.Store, p *patch.Project) error {
	return runInBackground(project.LogProgress{}, func(progress project.Progress) error {
		return store.Save(p, progress)
	})
}
