package registry

import (
	"slices"

	"go.uber.org/zap"

	"github.com/joshuapare/pagekit/internal/mmfile"
	"github.com/joshuapare/pagekit/registry/verify"
)

// DuplicatePage records two pages claiming one location.
type DuplicatePage struct {
	Kept    *Page
	Dropped *Page
}

// VerifyReport is the outcome of VerifyPages.
type VerifyReport struct {
	OK         []*Page
	TooNew     []*Page
	Bad        []*Page // corrupt or out of date
	Duplicates []DuplicatePage
	Deleted    []string
}

// VerifyPages partitions the registered pages by status and applies the
// configured policy: bad pages are deleted when DeleteBadPages is set,
// too-new pages are kept and optionally warned about, and with DeepVerify
// every OK page is checked structurally first. Finally, of two OK pages
// sharing a location the one registered later is unregistered.
func (r *Registry) VerifyPages() VerifyReport {
	var rep VerifyReport
	for _, p := range slices.Clone(r.pages) {
		if p.status == StatusOK && r.opts.DeepVerify && p.hasFile() {
			if err := deepVerify(p); err != nil {
				r.log.Warn("page failed deep verification",
					zap.String("page", p.String()), zap.String("path", p.path), zap.Error(err))
				p.status = StatusCorrupt
			}
		}
		switch p.status {
		case StatusOK:
			rep.OK = append(rep.OK, p)
		case StatusTooNew:
			rep.TooNew = append(rep.TooNew, p)
		case StatusCorrupt, StatusOutOfDate:
			rep.Bad = append(rep.Bad, p)
		}
	}

	if r.opts.WarnNewerPages {
		for _, p := range rep.TooNew {
			r.log.Warn("page is newer than this engine; keeping file",
				zap.String("page", p.String()), zap.String("path", p.path), zap.Uint32("major", p.major))
		}
	}
	for _, p := range rep.Bad {
		if !r.opts.DeleteBadPages {
			r.log.Info("bad page left in place",
				zap.String("page", p.String()), zap.Stringer("status", p.status))
			continue
		}
		path := p.path
		if err := r.RemovePage(p, true); err != nil {
			r.log.Error("failed to delete bad page", zap.String("path", path), zap.Error(err))
			continue
		}
		if path != "" {
			rep.Deleted = append(rep.Deleted, path)
		}
	}

	byLoc := slices.Clone(rep.OK)
	slices.SortStableFunc(byLoc, func(a, b *Page) int { return a.loc.Compare(b.loc) })
	var dropped []*Page
	for i := 1; i < len(byLoc); i++ {
		kept, dup := byLoc[i-1], byLoc[i]
		if !kept.loc.Equal(dup.loc) {
			continue
		}
		// keep comparing later duplicates against the survivor
		byLoc[i] = kept
		r.log.Warn("duplicate page location",
			zap.Stringer("location", dup.loc),
			zap.String("kept", kept.String()),
			zap.Stringer("kept_id", kept.id),
			zap.String("dropped", dup.String()),
			zap.Stringer("dropped_id", dup.id),
			zap.String("dropped_path", dup.path))
		if err := r.RemovePage(dup, false); err != nil {
			r.log.Error("failed to unregister duplicate page", zap.Error(err))
			continue
		}
		rep.Duplicates = append(rep.Duplicates, DuplicatePage{Kept: kept, Dropped: dup})
		dropped = append(dropped, dup)
	}
	rep.OK = slices.DeleteFunc(rep.OK, func(p *Page) bool { return slices.Contains(dropped, p) })

	r.updatePageGauge()
	return rep
}

func deepVerify(p *Page) error {
	region, err := mmfile.Open(p.path)
	if err != nil {
		return err
	}
	defer region.Close()
	return verify.AllInvariants(region.Bytes())
}
