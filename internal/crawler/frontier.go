package crawler

// frontier is a FIFO queue with set membership.
// A URL is queued at most once until it is popped.
type frontier struct {
	queue   []string
	members map[string]struct{}
}

func newFrontier() *frontier {
	return &frontier{
		queue:   make([]string, 0),
		members: make(map[string]struct{}),
	}
}

// push appends url unless it is already queued. It reports whether url was added.
func (f *frontier) push(url string) bool {
	if _, ok := f.members[url]; ok {
		return false
	}
	f.members[url] = struct{}{}
	f.queue = append(f.queue, url)
	return true
}

// pop removes and returns the oldest queued URL.
func (f *frontier) pop() (string, bool) {
	for len(f.queue) > 0 {
		url := f.queue[0]
		f.queue[0] = ""
		f.queue = f.queue[1:]
		if _, ok := f.members[url]; ok {
			delete(f.members, url)
			return url, true
		}
	}
	return "", false
}

// remove drops url from the frontier if present.
// The queue slot is reclaimed lazily by pop.
func (f *frontier) remove(url string) {
	delete(f.members, url)
}

func (f *frontier) contains(url string) bool {
	_, ok := f.members[url]
	return ok
}

func (f *frontier) len() int {
	return len(f.members)
}
