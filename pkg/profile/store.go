package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// document is the on-disk schema for one level (spec section 6: "one
// document per level"). Field order here is the serialization order of
// the stored file; since it's fixed by struct declaration (not a map),
// that file is deterministic. Dump re-serializes it with sorted keys.
type document struct {
	Selected string    `json:"selected,omitempty"`
	Profiles []Profile `json:"profiles"`
}

// Store mediates reads and writes to the user and system profile levels.
// It is passed explicitly into every operation that needs one (spec
// section 9: avoid a package-level singleton for the selected-profile
// state).
type Store struct {
	userPath   string
	systemPath string
}

// NewStore builds a Store over the given level paths. Pass "" for either
// to use the spec's default location (DefaultUserPath/DefaultSystemPath).
func NewStore(userPath, systemPath string) (*Store, error) {
	if userPath == "" {
		p, err := DefaultUserPath()
		if err != nil {
			return nil, errors.Wrap(err, "resolving default user store path")
		}
		userPath = p
	}
	if systemPath == "" {
		systemPath = DefaultSystemPath()
	}
	return &Store{userPath: userPath, systemPath: systemPath}, nil
}

func (s *Store) path(level Level) string {
	if level == SystemLevel {
		return s.systemPath
	}
	return s.userPath
}

func (s *Store) load(level Level) (*document, error) {
	data, err := os.ReadFile(s.path(level))
	if errors.Is(err, os.ErrNotExist) {
		return &document{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s profile store", level)
	}
	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrapf(err, "parsing %s profile store", level)
	}
	return doc, nil
}

// save writes doc to level's path atomically: serialize to a temp file in
// the same directory, fsync, then rename over the target (spec 4.5).
func (s *Store) save(level Level, doc *document) error {
	path := s.path(level)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating profile store directory")
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "serializing profile store")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "creating temporary profile store file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing temporary profile store file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "fsync temporary profile store file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temporary profile store file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "renaming profile store into place")
	}
	return nil
}

// withLock serializes concurrent writers to the user level via an
// advisory flock held on a sidecar ".lock" file for the duration of fn
// (spec sections 4.5/5). The system level is read-only at runtime and
// never locked.
func (s *Store) withLock(fn func() error) error {
	lockPath := s.userPath + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return errors.Wrap(err, "creating profile store directory")
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return errors.Wrap(err, "opening profile store lock")
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return errors.Wrap(err, "locking profile store")
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	return fn()
}

// Create makes a new, empty profile named name at level.
func (s *Store) Create(name string, level Level) (Profile, error) {
	if level == SystemLevel {
		return Profile{}, errors.New("system store is read-only at runtime")
	}
	var created Profile
	err := s.withLock(func() error {
		doc, err := s.load(level)
		if err != nil {
			return err
		}
		for _, p := range doc.Profiles {
			if p.Name == name {
				return fmt.Errorf("profile %q already exists", name)
			}
		}
		created = Profile{Name: name}
		doc.Profiles = append(doc.Profiles, created)
		return s.save(level, doc)
	})
	return created, err
}

// Get looks up name, checking the user store first and falling back to
// the system store (spec section 3).
func (s *Store) Get(name string) (Profile, Level, error) {
	for _, level := range []Level{UserLevel, SystemLevel} {
		doc, err := s.load(level)
		if err != nil {
			return Profile{}, 0, err
		}
		for _, p := range doc.Profiles {
			if p.Name == name {
				return p, level, nil
			}
		}
	}
	return Profile{}, 0, fmt.Errorf("no such profile: %q", name)
}

// List returns every profile at level.
func (s *Store) List(level Level) ([]Profile, error) {
	doc, err := s.load(level)
	if err != nil {
		return nil, err
	}
	return doc.Profiles, nil
}

// ListAll merges both levels, with a user-level profile shadowing a
// system-level profile of the same name.
func (s *Store) ListAll() ([]Profile, error) {
	sysProfiles, err := s.List(SystemLevel)
	if err != nil {
		return nil, err
	}
	userProfiles, err := s.List(UserLevel)
	if err != nil {
		return nil, err
	}
	byName := map[string]Profile{}
	for _, p := range sysProfiles {
		byName[p.Name] = p
	}
	for _, p := range userProfiles {
		byName[p.Name] = p
	}
	out := make([]Profile, 0, len(byName))
	for _, p := range byName {
		out = append(out, p)
	}
	return out, nil
}

// Update applies patch to the named profile at level, atomically: either
// every field is replaced, or (if patch returns an error, or the result
// fails Validate) the stored record is left untouched (spec 4.5).
func (s *Store) Update(name string, level Level, patch func(*Profile) error) error {
	if level == SystemLevel {
		return errors.New("system store is read-only at runtime")
	}
	return s.withLock(func() error {
		doc, err := s.load(level)
		if err != nil {
			return err
		}
		idx := -1
		for i, p := range doc.Profiles {
			if p.Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("no such profile: %q", name)
		}

		candidate := doc.Profiles[idx]
		if err := patch(&candidate); err != nil {
			return err
		}
		if err := candidate.Validate(); err != nil {
			return err
		}
		if err := candidate.ValidateFS(); err != nil {
			return err
		}

		doc.Profiles[idx] = candidate
		return s.save(level, doc)
	})
}

// Delete removes the named profile from the user store. A profile cannot
// be deleted while selected (spec section 3); unselect it first.
func (s *Store) Delete(name string) error {
	return s.withLock(func() error {
		doc, err := s.load(UserLevel)
		if err != nil {
			return err
		}
		if doc.Selected == name {
			return fmt.Errorf("profile %q is selected; unselect before deleting", name)
		}
		out := doc.Profiles[:0]
		found := false
		for _, p := range doc.Profiles {
			if p.Name == name {
				found = true
				continue
			}
			out = append(out, p)
		}
		if !found {
			return fmt.Errorf("no such profile: %q", name)
		}
		doc.Profiles = out
		return s.save(UserLevel, doc)
	})
}

// Select marks name as the selected profile in the user store. At most
// one profile may be selected at a time (spec section 3).
func (s *Store) Select(name string) error {
	return s.withLock(func() error {
		doc, err := s.load(UserLevel)
		if err != nil {
			return err
		}
		exists := false
		for _, p := range doc.Profiles {
			if p.Name == name {
				exists = true
				break
			}
		}
		if !exists {
			if _, _, err := s.Get(name); err != nil {
				return err
			}
		}
		doc.Selected = name
		return s.save(UserLevel, doc)
	})
}

// Unselect clears the selected-profile state.
func (s *Store) Unselect() error {
	return s.withLock(func() error {
		doc, err := s.load(UserLevel)
		if err != nil {
			return err
		}
		doc.Selected = ""
		return s.save(UserLevel, doc)
	})
}

// Selected returns the currently selected profile name, or "" if none.
func (s *Store) Selected() (string, error) {
	doc, err := s.load(UserLevel)
	if err != nil {
		return "", err
	}
	return doc.Selected, nil
}

// Copy duplicates src's fields into a new profile named dst in the user
// store.
func (s *Store) Copy(src, dst string) error {
	source, _, err := s.Get(src)
	if err != nil {
		return err
	}
	return s.withLock(func() error {
		doc, err := s.load(UserLevel)
		if err != nil {
			return err
		}
		for _, p := range doc.Profiles {
			if p.Name == dst {
				return fmt.Errorf("profile %q already exists", dst)
			}
		}
		copied := source
		copied.Name = dst
		doc.Profiles = append(doc.Profiles, copied)
		return s.save(UserLevel, doc)
	})
}

// Dump serializes level's document with every object's keys sorted, for
// deterministic, diffable output (spec section 6).
func (s *Store) Dump(level Level) (string, error) {
	doc, err := s.load(level)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	// Round-trip through generic maps: encoding/json writes map keys in
	// sorted order.
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
