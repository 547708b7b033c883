package permissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Permission describes a resource.action grant.
type Permission struct {
	ID          string
	Resource    string
	Action      string
	DependsOn   []string
	Description string
}

type permissionRegistry struct {
	mu          sync.RWMutex
	permissions map[string]*Permission
}

var globalRegistry = &permissionRegistry{
	permissions: make(map[string]*Permission),
}

var (
	errNilPermission  = errors.New("permission: nil definition")
	errEmptyID        = errors.New("permission: id is required")
	errMalformedID    = errors.New("permission: id must look like resource.action")
	errDuplicateID    = errors.New("permission: already registered")
	errSelfDependency = errors.New("permission: cannot depend on itself")
)

// Register adds a permission definition to the global registry. Resource and
// Action are derived from the id when left empty.
func Register(perm *Permission) error {
	if perm == nil {
		return errNilPermission
	}

	id := strings.TrimSpace(perm.ID)
	if id == "" {
		return errEmptyID
	}

	resource, action, ok := strings.Cut(id, ".")
	if !ok || resource == "" || action == "" {
		return fmt.Errorf("%w: %s", errMalformedID, id)
	}

	def := clonePermission(perm)
	def.ID = id
	if strings.TrimSpace(def.Resource) == "" {
		def.Resource = resource
	}
	if strings.TrimSpace(def.Action) == "" {
		def.Action = action
	}

	depends, err := normaliseIDs(def.DependsOn, id)
	if err != nil {
		return err
	}
	def.DependsOn = depends

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if _, exists := globalRegistry.permissions[id]; exists {
		return fmt.Errorf("%w: %s", errDuplicateID, id)
	}

	globalRegistry.permissions[id] = def
	return nil
}

// Get returns a copy of the permission definition when registered.
func Get(id string) (*Permission, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	perm, ok := globalRegistry.permissions[id]
	if !ok {
		return nil, false
	}
	return clonePermission(perm), true
}

// GetAll returns a copy of all registered permissions keyed by ID.
func GetAll() map[string]*Permission {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	out := make(map[string]*Permission, len(globalRegistry.permissions))
	for id, perm := range globalRegistry.permissions {
		out[id] = clonePermission(perm)
	}
	return out
}

// IDs returns every registered permission id in sorted order.
func IDs() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	ids := make([]string, 0, len(globalRegistry.permissions))
	for id := range globalRegistry.permissions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetByResource gathers permissions registered for the resource.
func GetByResource(resource string) []*Permission {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	resource = strings.TrimSpace(resource)
	var perms []*Permission
	for _, perm := range globalRegistry.permissions {
		if perm.Resource == resource {
			perms = append(perms, clonePermission(perm))
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].ID < perms[j].ID })
	return perms
}

// ValidateDependencies ensures that all dependencies reference known permissions.
func ValidateDependencies() error {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	for _, perm := range globalRegistry.permissions {
		for _, dep := range perm.DependsOn {
			if _, ok := globalRegistry.permissions[dep]; !ok {
				return fmt.Errorf("permission: %s depends on unknown permission %s", perm.ID, dep)
			}
		}
	}
	return nil
}

func clonePermission(perm *Permission) *Permission {
	if perm == nil {
		return nil
	}

	cp := *perm
	if len(perm.DependsOn) > 0 {
		cp.DependsOn = append([]string(nil), perm.DependsOn...)
	}
	return &cp
}

func normaliseIDs(values []string, self string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(values))
	var result []string

	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if value == self {
			return nil, errSelfDependency
		}
		if _, exists := seen[value]; exists {
			continue
		}

		seen[value] = struct{}{}
		result = append(result, value)
	}

	return result, nil
}

func removePermission(id string) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	delete(globalRegistry.permissions, id)
}
