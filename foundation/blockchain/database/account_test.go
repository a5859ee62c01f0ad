package database_test

import (
	"strings"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

func Test_ToAccountID(t *testing.T) {
	tt := []struct {
		name  string
		hex   string
		exp   database.AccountID
		valid bool
	}{
		{name: "checksummed", hex: string(alice), exp: alice, valid: true},
		{name: "lower", hex: strings.ToLower(string(alice)), exp: alice, valid: true},
		{name: "upper", hex: "0x" + strings.ToUpper(string(bob)[2:]), exp: bob, valid: true},
		{name: "short", hex: "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8eb", valid: false},
		{name: "name", hex: "bill", valid: false},
	}

	t.Log("Given the need to validate account ids.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s account.", testID, tst.name)
			{
				got, err := database.ToAccountID(tst.hex)
				if !tst.valid {
					if err == nil {
						t.Fatalf("\t%s\tTest %d:\tShould reject the account.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould reject the account.", success, testID)
					continue
				}

				if err != nil || got != tst.exp {
					t.Fatalf("\t%s\tTest %d:\tShould get %s, got %s: %v", failed, testID, tst.exp, got, err)
				}
				if !got.IsAccountID() {
					t.Fatalf("\t%s\tTest %d:\tShould get a checksummed account.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get the checksummed account.", success, testID)
			}
		}
	}
}
