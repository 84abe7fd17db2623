//go:build consul

package consul

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	consulapi "github.com/hashicorp/consul/api"

	"global-relay/pkg/model"
	"global-relay/pkg/store"
)

// Directory is a Consul KV-backed store.Directory. It exists for deployments
// where relay state should survive a process restart or be shared by replicas
// behind sticky routing; the memory directory remains the default.
type Directory struct {
	cli *consulapi.Client
}

const (
	nodePrefix    = "global-relay/nodes/"
	mailboxPrefix = "global-relay/mailbox/"
	auditPrefix   = "global-relay/audit/"
)

func NewDirectory(addr string) *Directory {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	cli, _ := consulapi.NewClient(cfg) // ignore error for build; runtime will report
	return &Directory{cli: cli}
}

func (d *Directory) PutManifest(m model.NodeManifest) error {
	if d.cli == nil {
		return fmt.Errorf("consul client not configured")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = d.cli.KV().Put(&consulapi.KVPair{Key: nodePrefix + m.NodeID, Value: b}, nil)
	return err
}

func (d *Directory) GetManifest(nodeID string) (model.NodeManifest, bool, error) {
	var m model.NodeManifest
	if d.cli == nil {
		return m, false, fmt.Errorf("consul client not configured")
	}
	pair, _, err := d.cli.KV().Get(nodePrefix+nodeID, nil)
	if err != nil || pair == nil {
		return m, false, err
	}
	if err := json.Unmarshal(pair.Value, &m); err != nil {
		return m, false, err
	}
	return m, true, nil
}

func (d *Directory) ListManifests() ([]model.NodeManifest, error) {
	if d.cli == nil {
		return nil, fmt.Errorf("consul client not configured")
	}
	pairs, _, err := d.cli.KV().List(nodePrefix, nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.NodeManifest, 0, len(pairs))
	for _, p := range pairs {
		var m model.NodeManifest
		if err := json.Unmarshal(p.Value, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (d *Directory) ResolveWallet(wallet string) (model.NodeManifest, bool, error) {
	all, err := d.ListManifests()
	if err != nil {
		return model.NodeManifest{}, false, err
	}
	w := strings.ToLower(wallet)
	for _, m := range all {
		if strings.ToLower(m.Wallet) == w {
			return m, true, nil
		}
	}
	return model.NodeManifest{}, false, nil
}

func (d *Directory) RemoveByWallet(wallet string) ([]string, error) {
	all, err := d.ListManifests()
	if err != nil {
		return nil, err
	}
	w := strings.ToLower(wallet)
	var removed []string
	for _, m := range all {
		if strings.ToLower(m.Wallet) != w {
			continue
		}
		if _, err := d.cli.KV().Delete(nodePrefix+m.NodeID, nil); err != nil {
			return removed, err
		}
		_, _ = d.cli.KV().Delete(mailboxPrefix+m.NodeID, nil)
		removed = append(removed, m.NodeID)
	}
	return removed, nil
}

// Enqueue appends via a check-and-set loop so concurrent senders do not lose
// messages to a lost update.
func (d *Directory) Enqueue(nodeID string, msg model.RelayMessage) (bool, error) {
	if d.cli == nil {
		return false, fmt.Errorf("consul client not configured")
	}
	if _, ok, err := d.GetManifest(nodeID); err != nil {
		return false, err
	} else if !ok {
		return false, store.ErrUnknownNode
	}
	key := mailboxPrefix + nodeID
	for attempt := 0; attempt < 5; attempt++ {
		pair, _, err := d.cli.KV().Get(key, nil)
		if err != nil {
			return false, err
		}
		var box []model.RelayMessage
		var index uint64
		if pair != nil {
			index = pair.ModifyIndex
			if err := json.Unmarshal(pair.Value, &box); err != nil {
				box = nil
			}
		}
		dropped := false
		if len(box) >= model.MailboxCap {
			box = box[len(box)-model.MailboxCap+1:]
			dropped = true
		}
		box = append(box, msg)
		b, err := json.Marshal(box)
		if err != nil {
			return false, err
		}
		ok, _, err := d.cli.KV().CAS(&consulapi.KVPair{Key: key, Value: b, ModifyIndex: index}, nil)
		if err != nil {
			return false, err
		}
		if ok {
			return dropped, nil
		}
	}
	return false, fmt.Errorf("mailbox contention on %s", nodeID)
}

// Drain deletes the mailbox with a check-and-set delete so a message enqueued
// concurrently is never returned and lost at the same time.
func (d *Directory) Drain(nodeID string, seen int64) ([]model.RelayMessage, error) {
	m, ok, err := d.GetManifest(nodeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, store.ErrUnknownNode
	}
	m.LastSeen = seen
	if err := d.PutManifest(m); err != nil {
		return nil, err
	}
	key := mailboxPrefix + nodeID
	for attempt := 0; attempt < 5; attempt++ {
		pair, _, err := d.cli.KV().Get(key, nil)
		if err != nil {
			return nil, err
		}
		if pair == nil {
			return []model.RelayMessage{}, nil
		}
		ok, _, err := d.cli.KV().DeleteCAS(&consulapi.KVPair{Key: key, ModifyIndex: pair.ModifyIndex}, nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var box []model.RelayMessage
		if err := json.Unmarshal(pair.Value, &box); err != nil {
			return nil, err
		}
		return box, nil
	}
	return nil, fmt.Errorf("mailbox contention on %s", nodeID)
}

func (d *Directory) Sweep(cutoff int64) ([]string, error) {
	all, err := d.ListManifests()
	if err != nil {
		return nil, err
	}
	var evicted []string
	for _, m := range all {
		if m.Liveness() >= cutoff {
			continue
		}
		if _, err := d.cli.KV().Delete(nodePrefix+m.NodeID, nil); err != nil {
			return evicted, err
		}
		_, _ = d.cli.KV().Delete(mailboxPrefix+m.NodeID, nil)
		evicted = append(evicted, m.NodeID)
	}
	return evicted, nil
}

func (d *Directory) NodeCount() (int, error) {
	all, err := d.ListManifests()
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (d *Directory) AppendAudit(entry model.AuditEntry) error {
	if d.cli == nil {
		return fmt.Errorf("consul client not configured")
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := auditPrefix + strconv.FormatInt(time.Now().UnixNano(), 10)
	_, err = d.cli.KV().Put(&consulapi.KVPair{Key: key, Value: b}, nil)
	return err
}

func (d *Directory) ListAudit(limit int) ([]model.AuditEntry, error) {
	if d.cli == nil {
		return nil, fmt.Errorf("consul client not configured")
	}
	pairs, _, err := d.cli.KV().List(auditPrefix, nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[len(pairs)-limit:]
	}
	out := make([]model.AuditEntry, 0, len(pairs))
	for _, p := range pairs {
		var e model.AuditEntry
		if err := json.Unmarshal(p.Value, &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
