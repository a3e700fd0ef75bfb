package storage

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Key layout
//
//	user:{id}                          -> user
//	idx:email:{lower email}            -> user id
//	idx:username:{lower username}      -> user id
//	chat:{id}                          -> chat
//	member:{user id}:{chat id}         -> empty
//	direct:{min user id}:{max user id} -> chat id
//	msg:{chat id}:{unix nano 19}:{id}  -> message
//	msgid:{id}                         -> msg key
//	read:{message id}:{user id}        -> read mark
const (
	userPrefix     = "user:"
	emailPrefix    = "idx:email:"
	usernamePrefix = "idx:username:"
	chatPrefix     = "chat:"
	memberPrefix   = "member:"
	directPrefix   = "direct:"
	messagePrefix  = "msg:"
	messageIDIndex = "msgid:"
	readPrefix     = "read:"
)

// maxConflictRetries bounds the re-execution of a transaction aborted by
// badger.ErrConflict. Every transaction of this package is idempotent.
const maxConflictRetries = 8

// OpenBadger opens the store at path with the logging level used by the server.
func OpenBadger(path string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return db, nil
}

func userKey(id string) []byte { return []byte(userPrefix + id) }

func emailKey(email string) []byte {
	return []byte(emailPrefix + strings.ToLower(email))
}

func usernameKey(username string) []byte {
	return []byte(usernamePrefix + strings.ToLower(username))
}

func chatKey(id string) []byte { return []byte(chatPrefix + id) }

func memberKey(userID, chatID string) []byte {
	return []byte(memberPrefix + userID + ":" + chatID)
}

func directKey(userA, userB string) []byte {
	return []byte(directPrefix + domain.DirectKey(userA, userB))
}

func messageKey(chatID string, unixNano int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", messagePrefix, chatID, unixNano, id))
}

func messagesOf(chatID string) []byte { return []byte(messagePrefix + chatID + ":") }

func messageIDKey(id string) []byte { return []byte(messageIDIndex + id) }

func readKey(messageID, userID string) []byte {
	return []byte(readPrefix + messageID + ":" + userID)
}

func readsOf(messageID string) []byte { return []byte(readPrefix + messageID + ":") }

// update runs fn in a read-write transaction, retrying on conflicts.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err = db.Update(fn); !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func getString(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}
