package cache

// Repo stores cached panel sessions keyed by domain.
type Repo interface {
	Get(domain string) (Entry, bool)
	Put(domain string, entry Entry) error
	Domains() []string
}
