package serve

import (
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"spritemov/history"
	"spritemov/notify"
	"spritemov/video"
	"spritemov/video/process"
)

// Jobs tracks renders submitted through the server. For every job it drains
// the event channel, relays progress to browsers, then records the outcome,
// notifies listeners and queues the inline preview clip.
type Jobs struct {
	Renderer *video.Renderer
	Store    history.Store
	Updates  *ProgressUpdater
	Notifier *notify.Notifier
	// VThumbs is optional.
	VThumbs *process.VThumbProducer
	// Configure, if set, supplies fresh renderer options for each submission.
	Configure func() video.RendererOptions

	mu    sync.Mutex
	live  map[string]*video.Job
	files map[string]*video.Record
	// busy holds jobs whose result has not been fully recorded yet.
	busy map[string]bool
	wg    sync.WaitGroup
}

// Submit starts req. files describes the artifacts the job will own.
func (m *Jobs) Submit(req video.Request, files *video.Record) *video.Job {
	if m.Configure != nil {
		m.Renderer.Reconfigure(m.Configure())
	}
	j := m.Renderer.Start(req)

	m.mu.Lock()
	if m.live == nil {
		m.live = make(map[string]*video.Job)
		m.files = make(map[string]*video.Record)
		m.busy = make(map[string]bool)
	}
	m.live[j.ID] = j
	m.files[j.ID] = files
	m.busy[j.ID] = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.watch(j, files)
	return j
}

// Get returns a job started by this process.
func (m *Jobs) Get(id string) (*video.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.live[id]
	return j, ok
}

// Running reports whether id names a job that is still rendering or whose
// result and preview clip are still being recorded.
func (m *Jobs) Running(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy[id]
}

// Wait blocks until every submitted job has been fully processed.
func (m *Jobs) Wait() {
	m.wg.Wait()
}

func (m *Jobs) watch(j *video.Job, files *video.Record) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.busy, j.ID)
		m.mu.Unlock()
	}()

	// Saved here so it always lands before the final record.
	if err := m.Store.Save(history.NewRecord(j, files)); err != nil {
		log.Errorf("Failed to record job %v: %v", j.ID, err)
	}

	for e := range j.Events() {
		switch e.Type {
		case video.EventProgress:
			m.publish(&ProgressMessage{Type: MessageProgress, JobID: j.ID, State: j.State().String(), Percent: e.Percent})
		case video.EventResult:
			m.finished(j, files, e.Result)
		}
	}
}

func (m *Jobs) finished(j *video.Job, files *video.Record, res *video.Result) {
	rec := history.NewRecord(j, files)
	if err := m.Store.Save(rec); err != nil {
		log.Errorf("Failed to record result of %v: %v", j.ID, err)
	}
	m.publish(&ProgressMessage{
		Type:      MessageResult,
		JobID:     j.ID,
		State:     j.State().String(),
		Percent:   j.Percent(),
		Succeeded: res.Succeeded(),
		Message:   res.Message(),
	})
	if m.Notifier != nil {
		m.Notifier.RenderFinished(j)
	}

	if !res.Succeeded() {
		if files != nil && files.SpritePath != "" {
			os.Remove(files.SpritePath)
		}
		return
	}
	if m.VThumbs == nil || files == nil || files.VThumbPath == "" {
		return
	}
	donec := m.VThumbs.Process(res.Path, files.VThumbPath)
	if donec == nil {
		return
	}
	if ok := <-donec; !ok {
		return
	}
	rec.HaveVThumb = true
	if err := m.Store.Save(rec); err != nil {
		log.Errorf("Failed to record preview of %v: %v", j.ID, err)
	}
	m.publish(&ProgressMessage{Type: MessageVThumb, JobID: j.ID, State: j.State().String(), Percent: 100, Succeeded: true})
}

func (m *Jobs) publish(msg *ProgressMessage) {
	if m.Updates != nil {
		m.Updates.Publish(msg)
	}
}
