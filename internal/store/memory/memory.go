// Package memory is an in-memory document store used for development and
// tests. Data disappears on restart; seed files can provide a starting
// registry.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"farmtrack/internal/core"
	"farmtrack/internal/store"
)

type userData struct {
	expenses      map[string]core.Expense
	categories    map[string]core.Category
	subcategories map[string]core.Subcategory
	milestones    map[string]core.Milestone
	farm          *core.FarmInfo
}

type Store struct {
	mu    sync.Mutex
	users map[string]*userData

	seedCategories    []string
	seedSubcategories []string
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{users: map[string]*userData{}}
}

// NewFromFiles creates a store whose per-user registries are seeded from two
// optional line files (seed_categories.txt, seed_subcategories.txt) under
// base. Missing files fall back to a small farm-flavoured default set.
func NewFromFiles(base string) *Store {
	s := New()
	s.seedCategories = readLines(filepath.Join(base, "seed_categories.txt"))
	s.seedSubcategories = readLines(filepath.Join(base, "seed_subcategories.txt"))
	if len(s.seedCategories) == 0 {
		s.seedCategories = []string{"Ploughing", "Planting", "Irrigation", "Harvest"}
	}
	if len(s.seedSubcategories) == 0 {
		s.seedSubcategories = []string{"Labour", "Materials", "Transport", "Others"}
	}
	return s
}

// forUser lazily initializes a user's collections, seeding the registry on
// first touch. Callers must hold s.mu.
func (s *Store) forUser(user string) *userData {
	if d, ok := s.users[user]; ok {
		return d
	}
	d := &userData{
		expenses:      map[string]core.Expense{},
		categories:    map[string]core.Category{},
		subcategories: map[string]core.Subcategory{},
		milestones:    map[string]core.Milestone{},
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for i, name := range s.seedSubcategories {
		id := fmt.Sprintf("seed-sub-%d", i+1)
		if strings.EqualFold(name, "others") {
			id = core.OthersSubcategoryID
		}
		d.subcategories[id] = core.Subcategory{ID: id, Name: name, CreatedAt: now}
	}
	subIDs := make([]string, 0, len(d.subcategories))
	for id := range d.subcategories {
		subIDs = append(subIDs, id)
	}
	sort.Strings(subIDs)
	for i, name := range s.seedCategories {
		id := fmt.Sprintf("seed-cat-%d", i+1)
		d.categories[id] = core.Category{ID: id, Name: name, SubcategoryIDs: subIDs, CreatedAt: now}
	}
	s.users[user] = d
	return d
}

func (s *Store) ListExpenses(_ context.Context, user string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.forUser(user)
	out := make([]core.Expense, 0, len(d.expenses))
	for _, e := range d.expenses {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, user, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.forUser(user).expenses[id]
	if !ok {
		return core.Expense{}, store.ErrNotFound
	}
	return e, nil
}

func (s *Store) PutExpense(_ context.Context, user string, e core.Expense) error {
	if e.ID == "" {
		return fmt.Errorf("put expense: missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forUser(user).expenses[e.ID] = e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, user, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forUser(user).expenses, id)
	return nil
}

func (s *Store) ListCategories(_ context.Context, user string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.forUser(user)
	out := make([]core.Category, 0, len(d.categories))
	for _, c := range d.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) PutCategory(_ context.Context, user string, c core.Category) error {
	if c.ID == "" {
		return fmt.Errorf("put category: missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forUser(user).categories[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, user, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forUser(user).categories, id)
	return nil
}

func (s *Store) ListSubcategories(_ context.Context, user string) ([]core.Subcategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.forUser(user)
	out := make([]core.Subcategory, 0, len(d.subcategories))
	for _, sc := range d.subcategories {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) PutSubcategory(_ context.Context, user string, sc core.Subcategory) error {
	if sc.ID == "" {
		return fmt.Errorf("put subcategory: missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forUser(user).subcategories[sc.ID] = sc
	return nil
}

func (s *Store) DeleteSubcategory(_ context.Context, user, id string) error {
	if id == core.OthersSubcategoryID {
		return core.ErrReservedSubcategory
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forUser(user).subcategories, id)
	return nil
}

func (s *Store) ListMilestones(_ context.Context, user string) ([]core.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.forUser(user)
	out := make([]core.Milestone, 0, len(d.milestones))
	for _, m := range d.milestones {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) PutMilestone(_ context.Context, user string, m core.Milestone) error {
	if m.ID == "" {
		return fmt.Errorf("put milestone: missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forUser(user).milestones[m.ID] = m
	return nil
}

func (s *Store) DeleteMilestone(_ context.Context, user, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forUser(user).milestones, id)
	return nil
}

func (s *Store) GetFarmInfo(_ context.Context, user string) (core.FarmInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.forUser(user)
	if d.farm == nil {
		return core.FarmInfo{}, nil
	}
	return *d.farm, nil
}

func (s *Store) PutFarmInfo(_ context.Context, user string, info core.FarmInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.forUser(user)
	d.farm = &info
	return nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
