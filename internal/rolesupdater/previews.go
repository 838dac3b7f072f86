package rolesupdater

import (
	"dirview/internal/fileitem"
	"dirview/internal/loop"
	"dirview/internal/model"
	"dirview/internal/preview"
	"dirview/internal/role"

	"go.uber.org/zap"
)

// previewSize is the size previews are generated and cached at.
func (u *Updater) previewSize() int {
	if u.iconSize > 128 {
		return 256
	}
	return 128
}

// startPreviewJob starts a job for the leading pending previews: all of
// them with a known MIME type, or as many as can be typed within
// MaxBlockTimeout.
func (u *Updater) startPreviewJob() {
	u.state = PreviewJobRunning

	if len(u.previews) == 0 {
		u.post(func() {
			if u.previewJob == nil {
				u.previewJobFinished()
			}
		})
		return
	}

	var items []*fileitem.Item
	if u.previews[0].IsMimeTypeKnown() {
		for len(u.previews) > 0 && u.previews[0].IsMimeTypeKnown() {
			items = append(items, u.previews[0])
			u.previews = u.previews[1:]
		}
	} else {
		start := u.sched.Now()
		for {
			it := u.previews[0]
			u.previews = u.previews[1:]
			it.DetermineMimeType()
			items = append(items, it)
			if len(u.previews) == 0 || u.elapsed(start) >= MaxBlockTimeout {
				break
			}
		}
	}

	req := preview.Request{
		Items:             items,
		Size:              u.previewSize(),
		Plugins:           u.EnabledPlugins(),
		EnlargeSmall:      u.enlargeSmallPreviews,
		MaxFileSize:       u.localFileSizePreviewLimit,
		IgnoreMaximumSize: items[0].IsLocal() && u.localFileSizePreviewLimit <= 0,
	}

	// Handlers of a job that was replaced stay silent.
	var job PreviewJob
	job = u.startPreview(req, preview.Handlers{
		OnGot: func(it *fileitem.Item, p preview.Preview) {
			if u.previewJob == job && !u.closed {
				u.gotPreview(it, p)
			}
		},
		OnFailed: func(it *fileitem.Item) {
			if u.previewJob == job && !u.closed {
				u.previewFailed(it)
			}
		},
		OnFinished: func() {
			if u.previewJob == job && !u.closed {
				u.previewJobFinished()
			}
		},
	})
	u.previewJob = job
	u.log.Debug("preview job started", zap.Int("items", len(items)), zap.Int("queued", len(u.previews)))
}

func (u *Updater) gotPreview(it *fileitem.Item, p preview.Preview) {
	if u.state != PreviewJobRunning {
		return
	}
	delete(u.changed, it.URL())

	index := u.model.Index(it.URL())
	if index < 0 {
		return
	}
	data := u.rolesData(it, index)
	data[role.IconPixmap] = p
	u.setData(index, data)
	u.finished.add(it.URL())
}

// previewFailed leaves the item with its icon and resolves everything else,
// so the item is finished either way.
func (u *Updater) previewFailed(it *fileitem.Item) {
	if u.state != PreviewJobRunning {
		return
	}
	delete(u.changed, it.URL())

	index := u.model.Index(it.URL())
	if index < 0 {
		return
	}
	u.setData(index, model.Values{role.IconPixmap: preview.Preview{}})
	u.applyResolvedRoles(index, resolveAll)
	u.finished.add(it.URL())
}

func (u *Updater) previewJobFinished() {
	u.previewJob = nil
	if u.state != PreviewJobRunning {
		return
	}
	u.state = Idle

	if len(u.previews) > 0 {
		u.startPreviewJob()
	} else if len(u.changed) > 0 {
		u.updateChangedItems()
	}
}

func (u *Updater) killPreviewJob() {
	if u.previewJob == nil {
		return
	}
	u.previewJob.Kill()
	u.previewJob = nil
	u.previews = nil
}

// failingPreviews is used without a preview backend: every preview fails,
// which still resolves the items' other roles.
func failingPreviews(sched loop.Scheduler) PreviewStarter {
	return func(req preview.Request, h preview.Handlers) PreviewJob {
		j := &failingJob{}
		sched.Post(func() {
			for _, it := range req.Items {
				if j.killed {
					return
				}
				h.OnFailed(it)
			}
			if !j.killed {
				h.OnFinished()
			}
		})
		return j
	}
}

type failingJob struct{ killed bool }

func (j *failingJob) Kill() { j.killed = true }
