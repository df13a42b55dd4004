/*
Package savedata implements a hierarchical, staged key-value save engine on
top of a flat positional key-value store (in this case, on top of Bolt).

We implement:

1. Leaves: typed values (Value), sequences (List), arbitrary objects (Object)
and compound values (BigNumber), each persisted as one store entry.

2. Groups, trees of leaves and sub-groups that build key paths and drive the
lifecycle (Load, Stage, Save, Reload, Reset, CleanData).

3. Inventories, groups managing identity-bearing records with id allocation
and recycling.

4. Stores: Bolt, in-memory, and (in package sqlstore) MySQL.

# Technical Details

**Key paths.**
Every leaf is stored under the dotted path of its ancestors' ids, e.g.
“player.wallet.coins”. Ids are unique among siblings only. There is no
schema file: the store's key set is the implicit schema.

**Staging.**
Leaves track their own dirtiness and are written only when changed; setting
a value equal to the current one is a no-op. A Stage over a tree batches all
writes; Save commits the store once, and only if something changed.

**Positional indexes.**
Stores assign each entry a dense position. A leaf resolves its position once
(on Load or first write) and uses it for all later reads and writes.

**Compaction.**
CleanData removes the entries of leaves holding their default value (a
missing entry reads back as the default). Removal shifts every later
position, so afterwards every cached index is dropped and re-resolved on
next use. Compaction never runs concurrently with an async staging sweep.

**Blobs.**
List and Object values are encoded with msgpack (optionally snappy
compressed) or JSON. Timestamps are stored as integer microsecond offsets.
*/
package savedata
