package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/marcmoiagese/gedcomimport/core/gedcom"
	"github.com/marcmoiagese/gedcomimport/db"
)

type ReplaceMode string

const (
	ReplaceAll ReplaceMode = "replace_all"
	MatchOnly  ReplaceMode = "match_only"
	NoReplace  ReplaceMode = "no_replace"
	Append     ReplaceMode = "append"
)

func ParseReplaceMode(s string) (ReplaceMode, error) {
	switch ReplaceMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ReplaceAll:
		return ReplaceAll, nil
	case MatchOnly:
		return MatchOnly, nil
	case NoReplace:
		return NoReplace, nil
	case Append:
		return Append, nil
	}
	return "", fmt.Errorf("mode de substitució desconegut: %q", s)
}

// ParseAppendOffset accepta "auto" (o buit) i enters positius. Zero vol dir
// automàtic.
func ParseAppendOffset(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("desplaçament d'afegit invàlid: %q", s)
	}
	return n, nil
}

// Options controla una importació.
type Options struct {
	ReplaceMode             ReplaceMode `json:"replace_mode"`
	UppercaseSurnames       bool        `json:"uppercase_surnames,omitempty"`
	SkipLivingRecalculation bool        `json:"skip_living_recalculation,omitempty"`
	NewerOnly               bool        `json:"newer_only,omitempty"`
	ImportMedia             bool        `json:"import_media,omitempty"`
	ImportLatLong           bool        `json:"import_lat_long,omitempty"`
	EventsOnly              bool        `json:"events_only,omitempty"`
	AllEvents               bool        `json:"all_events,omitempty"`
	BranchFilter            string      `json:"branch_filter,omitempty"`
	AppendOffset            int         `json:"append_offset,omitempty"`
	MediaRoot               string      `json:"media_root,omitempty"`
	MaxWarnings             int         `json:"max_warnings,omitempty"`
	RunID                   string      `json:"-"`

	// Progress rep els canvis d'estat (db.RunParsing, ...). Mai es crida
	// amb una transacció oberta.
	Progress func(status string) `json:"-"`
}

func (o Options) validate() error {
	if _, err := ParseReplaceMode(string(o.ReplaceMode)); err != nil {
		return err
	}
	if o.AppendOffset < 0 {
		return fmt.Errorf("desplaçament d'afegit negatiu: %d", o.AppendOffset)
	}
	return nil
}

func (o Options) progress(status string) {
	if o.Progress != nil {
		o.Progress(status)
	}
}

// OptionsFromConfig llegeix els valors per defecte IMPORT_* de la configuració.
func OptionsFromConfig(cfg map[string]string) Options {
	mode, err := ParseReplaceMode(cfg["IMPORT_REPLACE_MODE"])
	if err != nil {
		Warnf("IMPORT_REPLACE_MODE invàlid (%v), s'usa %s", err, ReplaceAll)
		mode = ReplaceAll
	}
	offset, err := ParseAppendOffset(cfg["IMPORT_APPEND_OFFSET"])
	if err != nil {
		Warnf("IMPORT_APPEND_OFFSET invàlid (%v), s'usa auto", err)
		offset = 0
	}
	return Options{
		ReplaceMode:             mode,
		UppercaseSurnames:       parseBoolDefault(cfg["IMPORT_UPPERCASE_SURNAMES"], false),
		SkipLivingRecalculation: parseBoolDefault(cfg["IMPORT_SKIP_LIVING"], false),
		NewerOnly:               parseBoolDefault(cfg["IMPORT_NEWER_ONLY"], false),
		ImportMedia:             parseBoolDefault(cfg["IMPORT_MEDIA"], true),
		ImportLatLong:           parseBoolDefault(cfg["IMPORT_LATLONG"], true),
		AllEvents:               parseBoolDefault(cfg["IMPORT_ALL_EVENTS"], false),
		AppendOffset:            offset,
		MediaRoot:               strings.TrimSpace(cfg["IMPORT_MEDIA_ROOT"]),
		MaxWarnings:             parseIntDefault(cfg["IMPORT_MAX_WARNINGS"], 500),
	}
}

type action int

const (
	actionInsert action = iota
	actionUpdate
	actionSkip
)

type decision struct {
	action action
	id     int64
	reason string
}

// decide aplica el mode de substitució a un registre amb identificador key.
func decide(ctx context.Context, store db.Store, tree string, opts Options, kind db.Kind, key string, changed time.Time) (decision, error) {
	switch opts.ReplaceMode {
	case ReplaceAll, Append, "":
		return decision{action: actionInsert}, nil
	}
	existing, err := store.Find(ctx, tree, kind, key)
	if err != nil {
		return decision{}, err
	}
	switch opts.ReplaceMode {
	case NoReplace:
		if existing != nil {
			return decision{action: actionSkip, reason: "ja existeix"}, nil
		}
		return decision{action: actionInsert}, nil
	case MatchOnly:
		if existing == nil {
			return decision{action: actionSkip, reason: "sense coincidència"}, nil
		}
		if opts.NewerOnly && !changed.IsZero() && !existing.ChangedAt.IsZero() && !changed.After(existing.ChangedAt) {
			return decision{action: actionSkip, reason: "no és més recent"}, nil
		}
		return decision{action: actionUpdate, id: existing.ID}, nil
	}
	return decision{}, fmt.Errorf("mode de substitució desconegut: %q", opts.ReplaceMode)
}

const livingYears = 110

// livingFlags calcula els indicadors de persona viva i privada.
func livingFlags(ind *gedcom.Individual, opts Options, now time.Time) (living, private bool) {
	restricted := ind.Restriction == "privacy" || ind.Restriction == "confidential"
	if opts.SkipLivingRecalculation {
		living = ind.Living != nil && *ind.Living
		private = restricted || (ind.Private != nil && *ind.Private)
		return living, private
	}
	living = true
	birthYear := 0
	for _, ev := range ind.Events {
		switch ev.Tag {
		case "DEAT", "BURI", "CREM":
			living = false
		case "BIRT", "CHR", "BAPM":
			if birthYear == 0 {
				birthYear = gedcom.SortYear(ev.DateSort)
			}
		}
	}
	if living && birthYear > 0 && now.Year()-birthYear > livingYears {
		living = false
	}
	private = living || restricted
	if ind.Private != nil {
		private = *ind.Private || restricted
	}
	return living, private
}
