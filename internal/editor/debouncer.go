package editor

import (
	"sync"
	"time"

	"github.com/grantgenius/grantgenius-backend/internal/goroutine"
)

// Debouncer откладывает вызов до паузы во вводе. Каждый Trigger отменяет
// ещё не сработавший таймер и взводит новый; срабатывает только последний.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	// gen отличает актуальный таймер от уже отменённого, который успел сработать.
	gen uint64
}

// NewDebouncer создаёт debouncer с заданной задержкой.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger (пере)планирует fn через delay.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = fn
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.take()
	d.mu.Unlock()

	goroutine.Guard("debounced write", fn)
}

// take забирает отложенный вызов; вызывать под mu.
func (d *Debouncer) take() func() {
	fn := d.pending
	d.pending = nil
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return fn
}

// Stop отменяет отложенный вызов. Возвращает true, если он был.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.take() != nil
}

// Flush немедленно выполняет отложенный вызов в текущей горутине.
// Возвращает false, если выполнять было нечего.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.take()
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	goroutine.Guard("flushed write", fn)
	return true
}

// Pending сообщает, ждёт ли вызов своего таймера.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
