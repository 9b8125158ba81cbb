package sweep

import (
	"context"
	"path"

	"go.uber.org/zap"

	"github.com/closetmatch/closet-sync/internal/fileio"
	"github.com/closetmatch/closet-sync/internal/queue"
	"github.com/closetmatch/closet-sync/pkg/metrics"
)

// KindDir is the managed staging directory for a kind, relative to the
// sync data dir. Only files directly inside it are subject to sweeping.
func KindDir(kind queue.Kind) string {
	return path.Join("images", string(kind))
}

// Sweeper reclaims staged files that no live record, pending job, or
// recent creation references anymore. It never touches files outside the
// kind's managed directory.
type Sweeper struct {
	reader *fileio.Reader
	writer *fileio.Writer
}

func NewSweeper(reader *fileio.Reader, writer *fileio.Writer) *Sweeper {
	return &Sweeper{reader: reader, writer: writer}
}

// Sweep deletes every file in the kind's managed directory whose path is
// absent from valid, and returns the number of files actually removed.
// The caller assembles valid from the database snapshot, the pending-job
// paths, and the recently-created registry, and only calls Sweep while no
// uploads are in flight. Individual delete failures are logged and do not
// stop the sweep.
func (s *Sweeper) Sweep(ctx context.Context, kind queue.Kind, valid map[string]struct{}) int {
	log := zap.S().Named("sweep")

	dir := KindDir(kind)
	entries, err := s.reader.ReadDir(dir)
	if err != nil {
		log.Errorw("failed to list staging directory", "dir", dir, "error", err)
		return 0
	}

	deleted := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			log.Warnw("sweep interrupted", "kind", kind, "deleted", deleted)
			break
		}
		if entry.IsDir() {
			continue
		}
		filePath := path.Join(dir, entry.Name())
		if _, ok := valid[filePath]; ok {
			continue
		}
		if err := s.writer.RemoveFile(filePath); err != nil {
			log.Warnw("failed to delete orphaned file", "path", filePath, "error", err)
			continue
		}
		log.Debugw("deleted orphaned file", "path", filePath)
		deleted++
	}

	if deleted > 0 {
		metrics.IncreaseOrphanFilesDeleted(string(kind), deleted)
		log.Infow("sweep finished", "kind", kind, "deleted", deleted)
	}
	return deleted
}
