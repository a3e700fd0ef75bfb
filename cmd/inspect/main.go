package main

import (
	"chat-hub/domain"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "user:", "Prefix to scan (user: or chat:)")
	flag.Parse()

	render, ok := renderers[*prefix]
	if !ok {
		color.Red.Printf("Unsupported prefix %q, expected user: or chat:\n", *prefix)
		os.Exit(2)
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(render.header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				row, err := render.row(v)
				if err != nil {
					color.Yellow.Printf("Skipping %s: %v\n", item.Key(), err)
					return nil
				}
				table.Append(row)
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	color.Green.Printf("%d record(s) under %s\n", count, *prefix)
}

type renderer struct {
	header []string
	row    func(v []byte) ([]string, error)
}

var renderers = map[string]renderer{
	"user:": {
		header: []string{"ID", "Username", "Email", "Status", "Last seen", "Created"},
		row: func(v []byte) ([]string, error) {
			var u domain.User
			if err := json.Unmarshal(v, &u); err != nil {
				return nil, err
			}
			return []string{u.ID, u.Username, u.Email, string(u.Status), stamp(u.LastSeen.IsZero(), u.LastSeen.Format("2006-01-02 15:04:05")), u.CreatedAt.Format("2006-01-02")}, nil
		},
	},
	"chat:": {
		header: []string{"ID", "Kind", "Name", "Participants", "Updated"},
		row: func(v []byte) ([]string, error) {
			var c domain.Chat
			if err := json.Unmarshal(v, &c); err != nil {
				return nil, err
			}
			kind := "direct"
			if c.IsGroup {
				kind = "group"
			}
			return []string{c.ID, kind, c.Name, strconv.Itoa(len(c.Participants)) + " (" + strings.Join(c.Participants, ",") + ")", c.UpdatedAt.Format("2006-01-02 15:04:05")}, nil
		},
	},
}

func stamp(zero bool, formatted string) string {
	if zero {
		return "-"
	}
	return formatted
}
