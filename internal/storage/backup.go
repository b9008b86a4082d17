package storage

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"repnote/internal/domain"
)

// BackupFileName is the suggested archive name for an export at the
// gateway's current time.
func (g *Gateway) BackupFileName() string {
	return fmt.Sprintf("backup-topics-%s.zip", g.now().Format("2006-01-02_15-04-05"))
}

// ExportBackup writes every topic directory and the tasks document into one
// zip. Entry names are relative to the data directory.
func (g *Gateway) ExportBackup(zipPath string) (err error) {
	f, err := os.Create(zipPath)
	if err != nil {
		return domain.NewIOError("create", zipPath, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = domain.NewIOError("close", zipPath, cerr)
		}
		if err != nil {
			os.Remove(zipPath)
		}
	}()

	zw := zip.NewWriter(f)
	walkErr := filepath.WalkDir(g.topicsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != g.topicsDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == g.topicsDir {
			return nil
		}
		rel, err := filepath.Rel(g.root, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			// empty topics have no files, only their directory entry
			_, err := zw.CreateHeader(&zip.FileHeader{Name: filepath.ToSlash(rel) + "/"})
			return err
		}
		return addZipFile(zw, p, filepath.ToSlash(rel))
	})
	if walkErr != nil {
		zw.Close()
		return domain.NewIOError("export", g.topicsDir, walkErr)
	}

	ok, err := exists(g.tasksPath)
	if err != nil {
		zw.Close()
		return err
	}
	if ok {
		rel, _ := filepath.Rel(g.root, g.tasksPath)
		if err := addZipFile(zw, g.tasksPath, filepath.ToSlash(rel)); err != nil {
			zw.Close()
			return domain.NewIOError("export", g.tasksPath, err)
		}
	}
	if err := zw.Close(); err != nil {
		return domain.NewIOError("export", zipPath, err)
	}
	g.log.Info("backup exported", "path", zipPath)
	return nil
}

func addZipFile(zw *zip.Writer, src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

// ImportReport describes what an import changed.
type ImportReport struct {
	// Topics maps each topic name found in the archive to the name it was
	// stored under.
	Topics        map[string]string
	TasksReplaced bool
}

// ImportBackup merges an archive into the store. Topics are added, never
// overwritten: a name already in use becomes "{name} (new)", then
// "{name} (new 2)" and so on. The tasks document, if present in the archive,
// replaces the current one wholesale. Either every change lands or none does.
func (g *Gateway) ImportBackup(zipPath string) (report ImportReport, err error) {
	scratch, err := os.MkdirTemp(g.root, ".import-*")
	if err != nil {
		return report, domain.NewIOError("mkdir", g.root, err)
	}
	defer func() {
		if rerr := os.RemoveAll(scratch); rerr != nil {
			g.log.Warn("import scratch not removed", "path", scratch, "error", rerr)
		}
		if derr := g.ensureDirs(); derr != nil && err == nil {
			err = derr
		}
	}()

	if err := extractZip(zipPath, scratch); err != nil {
		return report, err
	}

	tasksRel, _ := filepath.Rel(g.root, g.tasksPath)
	stagedTasks := filepath.Join(scratch, tasksRel)
	hasTasks, err := exists(stagedTasks)
	if err != nil {
		return report, err
	}
	if hasTasks {
		var doc domain.TaskDocument
		if err := readJSON(stagedTasks, &doc); err != nil {
			return report, err
		}
	}

	// Archives from before the topics/ prefix keep topics at the top level.
	topicsSrc := filepath.Join(scratch, topicsDirName)
	if ok, err := exists(topicsSrc); err != nil {
		return report, err
	} else if !ok {
		topicsSrc = scratch
	}
	entries, err := os.ReadDir(topicsSrc)
	if err != nil {
		return report, domain.NewIOError("readdir", topicsSrc, err)
	}

	report.Topics = make(map[string]string)
	reserved := make(map[string]bool)
	type move struct{ from, to string }
	var plan []move
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		final, err := g.freeTopicName(e.Name(), reserved)
		if err != nil {
			return report, err
		}
		reserved[final] = true
		report.Topics[e.Name()] = final
		plan = append(plan, move{from: filepath.Join(topicsSrc, e.Name()), to: g.topicPath(final)})
	}

	var done []move
	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			if rerr := os.Rename(done[i].to, done[i].from); rerr != nil {
				g.log.Error("import rollback failed", "path", done[i].to, "error", rerr)
			}
		}
	}
	for _, m := range plan {
		if err := os.Rename(m.from, m.to); err != nil {
			rollback()
			return ImportReport{}, domain.NewIOError("rename", m.to, err)
		}
		done = append(done, m)
	}
	if hasTasks {
		if err := os.Rename(stagedTasks, g.tasksPath); err != nil {
			rollback()
			return ImportReport{}, domain.NewIOError("rename", g.tasksPath, err)
		}
		report.TasksReplaced = true
	}

	g.log.Info("backup imported", "path", zipPath, "topics", len(plan), "tasks_replaced", report.TasksReplaced)
	return report, nil
}

// freeTopicName returns name if unused, otherwise the first free
// "(new)"/"(new N)" variant.
func (g *Gateway) freeTopicName(name string, reserved map[string]bool) (string, error) {
	candidate := name
	for n := 1; ; n++ {
		if n == 2 {
			candidate = name + " (new)"
		} else if n > 2 {
			candidate = fmt.Sprintf("%s (new %d)", name, n-1)
		}
		if reserved[candidate] {
			continue
		}
		ok, err := exists(g.topicPath(candidate))
		if err != nil {
			return "", err
		}
		if !ok {
			return candidate, nil
		}
	}
}

// extractZip unpacks src under dst, refusing entries that would land
// outside dst.
func extractZip(src, dst string) error {
	zr, err := zip.OpenReader(src)
	if errors.Is(err, zip.ErrInsecurePath) {
		zr.Close()
		return fmt.Errorf("%w: %s: %v", domain.ErrMalformedDocument, src, err)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, src)
		}
		if errors.Is(err, zip.ErrFormat) {
			return fmt.Errorf("%w: %s: %v", domain.ErrMalformedDocument, src, err)
		}
		return domain.NewIOError("open", src, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		name := path.Clean(strings.ReplaceAll(f.Name, `\`, "/"))
		if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
			return fmt.Errorf("%w: archive entry %q escapes the data directory", domain.ErrMalformedDocument, f.Name)
		}
		target := filepath.Join(dst, filepath.FromSlash(name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return domain.NewIOError("mkdir", target, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return domain.NewIOError("mkdir", target, err)
		}
		if err := extractFile(f, target); err != nil {
			return domain.NewIOError("extract", target, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
