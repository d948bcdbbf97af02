package nav

import (
	"net/url"
	"sync"
)

// Маршруты клиента
const (
	PathLogin       = "/login"
	PathExperiments = "/experiments"
)

// ExperimentPath — страница эксперимента.
func ExperimentPath(experimentID string) string {
	return PathExperiments + "/" + url.PathEscape(experimentID)
}

// ResultPath — страница результатов эксперимента.
func ResultPath(experimentID string) string {
	return ExperimentPath(experimentID) + "/result"
}

// Navigator переключает текущий экран клиента.
type Navigator interface {
	Navigate(path string)
}

// Func позволяет использовать функцию как Navigator.
type Func func(path string)

func (f Func) Navigate(path string) {
	f(path)
}

// Discard игнорирует переходы.
var Discard Navigator = Func(func(string) {})

// Recorder запоминает все переходы. Используется в тестах и в консоли для истории.
type Recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *Recorder) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.paths = append(r.paths, path)
}

// Paths возвращает копию истории переходов.
func (r *Recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.paths...)
}

// Last возвращает последний переход или пустую строку.
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.paths) == 0 {
		return ""
	}
	return r.paths[len(r.paths)-1]
}
