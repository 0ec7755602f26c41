// hexfogwalk drives a HexaryTrie walk against a deliberately
// partially-visible local NodeStore: it builds a trie, hides a
// fraction of its nodes from a "local" store, and then walks the
// whole thing using a HexaryTrieFog, backfilling every
// MissingTrieNode/MissingTraversalNode fault from a "remote" store
// that holds everything, the same beam-sync shape
// eth2030/eth2030's pkg/sync/beam.go drives against a real network
// peer.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/smontant/hexfog/trie"
	"github.com/smontant/hexfog/trie/kv"
)

var flags = []cli.Flag{
	cli.StringFlag{
		Name:  "scenario",
		Usage: "path to a scenario YAML file",
	},
	cli.StringFlag{
		Name:  "log-level",
		Value: "info",
		Usage: "panic|fatal|error|warn|info|debug|trace",
	},
}

func run(ctx *cli.Context) error {
	level, err := logrus.ParseLevel(ctx.String("log-level"))
	if err != nil {
		return errors.Wrap(err, "-log-level")
	}
	logrus.SetLevel(level)

	scenarioPath := ctx.String("scenario")
	if scenarioPath == "" {
		return errors.New("-scenario is required")
	}
	scenario, err := loadScenario(scenarioPath)
	if err != nil {
		return errors.Wrap(err, "loading scenario")
	}

	remoteStore, localStore, visible, rootHash, err := buildStores(scenario)
	if err != nil {
		return errors.Wrap(err, "building trie from scenario")
	}
	logrus.WithFields(logrus.Fields{
		"scenario": scenario.Name,
		"root":     rootHash.Hex(),
		"nodes":    remoteStore.Len(),
		"local":    visible,
	}).Info("seeded trie")

	localTrie, err := trie.New(rootHash, localStore)
	if err != nil {
		return errors.Wrap(err, "opening local trie")
	}

	fetches, err := walkFog(localTrie, localStore, remoteStore)
	if err != nil {
		return errors.Wrap(err, "walking fog")
	}
	logrus.WithField("fetches", fetches).Info("fog walk complete, local view now fully visible")

	count, err := enumerateKeys(localTrie)
	if err != nil {
		return errors.Wrap(err, "enumerating keys")
	}
	logrus.WithField("keys", count).Info("enumeration complete")
	return nil
}

// buildStores inserts scenario.Seed into a fresh trie backed by a
// fully populated remote MemStore, then seeds a FastCacheStore - the
// driver's stand-in for a bounded local node cache - with every stored
// node except every Nth one (by scenario.HiddenEvery), leaving those
// invisible locally until the fog walk backfills them.
func buildStores(scenario *Scenario) (remote *kv.MemStore, local trie.NodeStore, visible int, root common.Hash, err error) {
	remote = kv.NewMemStore()
	t := trie.NewEmpty(remote)
	batch := t.SquashChanges()
	for _, e := range scenario.Seed {
		key, err := hex.DecodeString(e.Key)
		if err != nil {
			return nil, nil, 0, common.Hash{}, errors.Wrapf(err, "seed key %q", e.Key)
		}
		value, err := hex.DecodeString(e.Value)
		if err != nil {
			return nil, nil, 0, common.Hash{}, errors.Wrapf(err, "seed value %q", e.Value)
		}
		if err := batch.Set(key, value); err != nil {
			return nil, nil, 0, common.Hash{}, err
		}
	}
	if err := batch.Commit(); err != nil {
		return nil, nil, 0, common.Hash{}, err
	}
	root = t.RootHash()

	hashes := remote.Hashes()
	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].Hex() < hashes[j].Hex()
	})
	fc := kv.NewFastCacheStore(32 * 1024)
	for i, h := range hashes {
		if scenario.HiddenEvery > 1 && i%scenario.HiddenEvery == 0 {
			continue
		}
		blob, _ := remote.Get(h)
		fc.Put(h, blob)
		visible++
	}
	return remote, fc, visible, root, nil
}

// walkFog drives a HexaryTrieFog to completion over t, backfilling any
// missing node from remote and retrying. It returns the number of
// nodes fetched.
func walkFog(t *trie.HexaryTrie, local trie.NodeStore, remote *kv.MemStore) (int, error) {
	fog := trie.NewHexaryTrieFog()
	cache := trie.NewTrieFrontierCache()
	fetches := 0

	for !fog.IsComplete() {
		prefix, err := fog.NearestUnknown(trie.EmptyPath())
		if err != nil {
			if _, ok := err.(*trie.PerfectVisibility); ok {
				break
			}
			return fetches, err
		}

		node, err := traverseViaCache(t, cache, prefix)
		if err != nil {
			if partial, ok := err.(*trie.TraversedPartialPath); ok {
				segments := make([]trie.Path, len(partial.Node.SubSegments))
				for i, s := range partial.Node.SubSegments {
					segments[i] = partial.Remaining.Concat(s)
				}
				fog, err = fog.Explore(prefix, segments)
				if err != nil {
					return fetches, err
				}
				logrus.WithField("prefix", prefix.String()).Debug("continued past a partial path")
				continue
			}
			missing, ok := missingHash(err)
			if !ok {
				return fetches, err
			}
			blob, ok := remote.Get(missing)
			if !ok {
				return fetches, errors.Errorf("remote store has no node %s either", missing.Hex())
			}
			local.Put(missing, blob)
			fetches++
			logrus.WithField("hash", missing.Hex()).Debug("backfilled missing node")
			continue
		}

		if len(node.SubSegments) > 0 {
			cache.Add(prefix, node.Raw, node.SubSegments)
		} else {
			cache.Delete(prefix)
		}
		fog, err = fog.Explore(prefix, node.SubSegments)
		if err != nil {
			return fetches, err
		}
		logrus.WithFields(logrus.Fields{
			"prefix": prefix.String(),
			"kind":   node.Kind.String(),
		}).Debug("explored prefix")
	}
	return fetches, nil
}

func traverseViaCache(t *trie.HexaryTrie, cache *trie.TrieFrontierCache, path trie.Path) (trie.HexaryTrieNode, error) {
	anchor, suffix, err := cache.Get(path)
	if err == nil {
		return t.TraverseFrom(anchor, suffix)
	}
	return t.Traverse(path)
}

func missingHash(err error) (common.Hash, bool) {
	switch e := err.(type) {
	case *trie.MissingTrieNode:
		return e.MissingNodeHash, true
	case *trie.MissingTraversalNode:
		return e.MissingNodeHash, true
	default:
		return common.Hash{}, false
	}
}

func enumerateKeys(t *trie.HexaryTrie) (int, error) {
	it, err := t.NewNodeIterator(trie.EmptyPath())
	if err != nil {
		return 0, err
	}
	count := 0
	for {
		key, _, ok, err := it.Next()
		if err != nil {
			return count, err
		}
		if !ok {
			break
		}
		count++
		logrus.WithField("key", key.String()).Trace("visited key")
	}
	return count, nil
}

func main() {
	app := cli.App{
		Name:  "hexfogwalk",
		Usage: "drive a partial-visibility walk over a hexary trie",
		Flags: flags,
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
