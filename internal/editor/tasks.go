package editor

import (
	"fmt"

	"stagecraft/internal/scene"
	"stagecraft/internal/stage"

	"github.com/dustin/go-humanize"
)

// loadStageTask returns the background body that fills sc from the stage
// file. Objects are published in one AddAll once everything they need is
// in memory.
func (e *Editor) loadStageTask(ref stage.Ref, sc *scene.Scene) func() error {
	return func() error {
		st, err := stage.Load(ref)
		if err != nil {
			return err
		}
		log := e.log.With().Str("stage", ref.Key()).Logger()

		if db := e.classDB.Load(); db != nil {
			if err := db.ResolveAll(st.Records); err != nil {
				log.Warn().Err(err).Msg("Stage objects do not match the class database")
			}
		} else {
			log.Warn().Msg("No class database loaded; arguments left unresolved")
		}

		types := actorTypes(st.Records)
		res := e.library.Prefetch(types, e.worker.SetStatusMessage)
		log.Info().
			Int("models", res.Loaded).
			Int("missing", res.Failed).
			Str("size", humanize.Bytes(uint64(res.Bytes))).
			Msg("Prefetched actor models")

		e.worker.SetStatusMessage(fmt.Sprintf("Generating %d scene objects...", len(st.Records)))
		objs := sc.AddAll(st.Records)
		for _, o := range scene.Unlinked(objs) {
			log.Warn().
				Str("id", o.Record.Base().ID).
				Str("parent", o.Record.(*stage.AreaChild).ParentID).
				Msg("Area child parent missing or cyclic; drawn unparented")
		}
		sc.SetReady()

		log.Info().Int("objects", len(st.Records)).Msg("Stage loaded")
		return nil
	}
}

func (e *Editor) loadClassDBTask() error {
	db, err := stage.LoadClassDB(e.cfg.Project.ClassDB)
	if err != nil {
		// keep the previous database
		e.log.Error().Err(err).Str("dir", e.cfg.Project.ClassDB).Msg("Loading class database")
		return nil
	}
	e.classDB.Store(db)
	e.log.Info().Int("classes", db.Len()).Msg("Class database loaded")
	return nil
}

// actorTypes lists the distinct model keys used by records, in first-seen
// order.
func actorTypes(records []stage.Record) []string {
	seen := make(map[string]bool)
	var types []string
	for _, rec := range records {
		t := stage.ActorType(rec)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		types = append(types, t)
	}
	return types
}
