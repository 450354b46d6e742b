/******************************************************************************
 *
 *  Description :
 *    A bounded pool of worker goroutines with a fixed-depth work queue.
 *
 *****************************************************************************/
package concurrency

// Task represents a unit of work to be run on the pool.
type Task func()

// GoRoutinePool runs submitted tasks on a fixed set of numWorkers goroutines.
// Once all workers are busy, tasks queue up to the queue depth; past that
// Schedule blocks, providing backpressure to callers.
type GoRoutinePool struct {
	// Work queue, buffered to queueDepth.
	work chan Task
	// Exit knob.
	stop chan struct{}
}

// NewGoRoutinePool starts a pool of `numWorkers` goroutines draining a work
// queue of `queueDepth` tasks.
func NewGoRoutinePool(numWorkers, queueDepth int) *GoRoutinePool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueDepth < 0 {
		queueDepth = 0
	}
	p := &GoRoutinePool{
		work: make(chan Task, queueDepth),
		stop: make(chan struct{}),
	}
	for i := 0; i < numWorkers; i++ {
		go p.worker()
	}
	return p
}

// Schedule enqueues a task. It blocks when all workers are busy and the
// queue is full. No-op after Stop.
func (p *GoRoutinePool) Schedule(task Task) {
	select {
	case p.work <- task:
	case <-p.stop:
	}
}

// QueueDepth reports the number of tasks waiting for a worker.
func (p *GoRoutinePool) QueueDepth() int {
	return len(p.work)
}

// Stop terminates the workers. Queued tasks which have not started are
// dropped.
func (p *GoRoutinePool) Stop() {
	close(p.stop)
}

// Pool worker goroutine.
func (p *GoRoutinePool) worker() {
	for {
		select {
		case task := <-p.work:
			task()
		case <-p.stop:
			return
		}
	}
}
