package tools

import (
	"sort"
	"sync"
)

type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// RegisterCore registers the tools that need nothing beyond the core API and kubectl.
func (r *Registry) RegisterCore(base BaseTool) {
	r.Register(&GetPodsTool{BaseTool: base})
	r.Register(&GetFailingPodsTool{BaseTool: base})
	r.Register(&DescribePodTool{BaseTool: base})
	r.Register(&GetPodLogsTool{BaseTool: base})
	r.Register(&TroubleshootPodTool{BaseTool: base})
	r.Register(&GetDeploymentsTool{BaseTool: base})
	r.Register(&RestartDeploymentTool{BaseTool: base})
	r.Register(&ExecuteKubectlTool{BaseTool: base})
	r.Register(&GetUnhealthyNodesTool{BaseTool: base})
}
