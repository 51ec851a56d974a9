package discovery

// Discovery abstracts how a router process learns its initial list of
// Galera node addresses (spec.md §6's seeds option), independent of the
// mechanism: a static list, DNS, a file, or gossip between router
// processes.
type Discovery interface {
    Seeds() []string
}

