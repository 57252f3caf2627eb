package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/grantgenius/grantgenius-backend/internal/logger"
)

// watchFile вызывает onChange с новым содержимым файла при каждом изменении.
// Следим за каталогом, а не за файлом: редакторы часто сохраняют через
// rename, и наблюдение за самим файлом после этого теряется.
func watchFile(ctx context.Context, path string, onChange func(content string)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var last string
	if raw, err := os.ReadFile(abs); err == nil {
		last = string(raw)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			raw, err := os.ReadFile(abs)
			if err != nil {
				// Файл мог исчезнуть между rename и create.
				logger.Entry().WithError(err).Debug("draft file not readable yet")
				continue
			}
			if content := string(raw); content != last {
				last = content
				onChange(content)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Entry().WithError(err).Warn("file watcher error")
		}
	}
}
