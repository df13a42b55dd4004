// Package sqlstore keeps save slots in MySQL through gorm, for games that
// mirror saves server-side.
//
// A slot is one savedata.Store: its entries are rows of the save_entries
// table keyed by (slot, k). Rows are loaded once by Open; afterwards the
// store behaves like any other savedata store and Commit writes all pending
// upserts and deletes in a single transaction.
//
// Positions are assigned in key order on Open, so a reopened slot may index
// entries differently than the process that wrote them. Leaves resolve their
// index by key on Load, so this is invisible to save trees.
package sqlstore
