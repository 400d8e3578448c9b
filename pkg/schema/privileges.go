package schema

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/stewarddb/steward/pkg/utils"
)

// privNames maps catalog ACL flag letters to their GRANT keywords.
var privNames = map[byte]string{
	'a': "INSERT",
	'r': "SELECT",
	'w': "UPDATE",
	'd': "DELETE",
	'D': "TRUNCATE",
	'x': "REFERENCES",
	't': "TRIGGER",
	'X': "EXECUTE",
	'U': "USAGE",
	'C': "CREATE",
	'c': "CONNECT",
	'T': "TEMPORARY",
}

// aclItem is one parsed entry of an access control list, e.g.
// "reporting=arwd/admin".
type aclItem struct {
	role    string // empty means PUBLIC
	flags   string
	grantor string
}

func parseACLItem(item string) aclItem {
	var it aclItem
	rest := item
	if i := strings.Index(rest, "="); i >= 0 {
		it.role = rest[:i]
		rest = rest[i+1:]
	}
	if i := strings.Index(rest, "/"); i >= 0 {
		it.grantor = rest[i+1:]
		rest = rest[:i]
	}
	it.flags = rest
	return it
}

func (it aclItem) grantee() string {
	if it.role == "" {
		return "PUBLIC"
	}
	return utils.QuoteIdent(it.role)
}

// privList expands ACL flag letters into GRANT keywords, preserving the
// catalog's flag order. Grant options (trailing '*') are ignored.
func privList(flags string) []string {
	var privs []string
	for i := 0; i < len(flags); i++ {
		if name, ok := privNames[flags[i]]; ok {
			privs = append(privs, name)
		}
	}
	return privs
}

// grantObjectType returns the keyword used in GRANT/REVOKE statements,
// which differs from the ALTER keyword for a couple of variants.
func grantObjectType(o Object) string {
	switch o.(type) {
	case *ForeignServer:
		return "FOREIGN SERVER"
	case *ForeignTable:
		return "TABLE"
	default:
		return o.ObjectType()
	}
}

func grantSQL(o Object, it aclItem) string {
	return "GRANT " + strings.Join(privList(it.flags), ", ") + " ON " +
		grantObjectType(o) + " " + o.Identifier() + " TO " + it.grantee()
}

func revokeSQL(o Object, it aclItem) string {
	return "REVOKE ALL ON " + grantObjectType(o) + " " + o.Identifier() +
		" FROM " + it.grantee()
}

// grantStatements emits one GRANT per ACL item, skipping the owner's own
// implicit entry.
func grantStatements(o Grantable) []string {
	var stmts []string
	for _, item := range o.ACL() {
		it := parseACLItem(item)
		if it.role == o.base().Owner {
			continue
		}
		if len(privList(it.flags)) == 0 {
			continue
		}
		stmts = append(stmts, grantSQL(o, it))
	}
	return stmts
}

// diffPrivileges produces the REVOKE/GRANT statements transforming the
// current ACL into the desired one. Roles present on both sides with
// different flags are revoked then re-granted.
func diffPrivileges(cur, want Grantable) []string {
	curItems := map[string]aclItem{}
	for _, item := range cur.ACL() {
		it := parseACLItem(item)
		curItems[it.role] = it
	}
	wantItems := map[string]aclItem{}
	var wantOrder []string
	for _, item := range want.ACL() {
		it := parseACLItem(item)
		wantItems[it.role] = it
		wantOrder = append(wantOrder, it.role)
	}

	var stmts []string

	var revoked []string
	for role, it := range curItems {
		w, ok := wantItems[role]
		if ok && w.flags == it.flags {
			continue
		}
		revoked = append(revoked, revokeSQL(cur, it))
	}
	sort.Strings(revoked)
	stmts = append(stmts, revoked...)

	for _, role := range wantOrder {
		it := wantItems[role]
		if c, ok := curItems[role]; ok && c.flags == it.flags {
			continue
		}
		if len(privList(it.flags)) == 0 {
			continue
		}
		stmts = append(stmts, grantSQL(cur, it))
	}
	return stmts
}

// flagOrder is the canonical ordering of ACL flag letters, matching the
// order the catalogs render them in.
const flagOrder = "arwdDxtXUCcT"

// privilegesFromSpec rebuilds raw ACL items from the specification form
// produced by privilegesSpec.
func privilegesFromSpec(v any) ([]string, error) {
	entries, ok := v.([]any)
	if !ok {
		return nil, errors.Wrap(ErrMalformedSpec, "privileges must be a list")
	}
	var acl []string
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok || len(m) != 1 {
			return nil, errors.Wrap(ErrMalformedSpec, "privilege entries must map a single role")
		}
		for role, privs := range m {
			names, ok := privs.([]any)
			if !ok {
				return nil, errors.Wrapf(ErrMalformedSpec, "privileges for %q must be a list", role)
			}
			want := map[string]bool{}
			for _, n := range names {
				s, ok := n.(string)
				if !ok {
					return nil, errors.Wrapf(ErrMalformedSpec, "privileges for %q must be strings", role)
				}
				want[strings.ToUpper(s)] = true
			}
			var flags []byte
			for i := 0; i < len(flagOrder); i++ {
				if want[privNames[flagOrder[i]]] {
					flags = append(flags, flagOrder[i])
				}
			}
			if role == "PUBLIC" {
				role = ""
			}
			acl = append(acl, role+"="+string(flags))
		}
	}
	return acl, nil
}

// privilegesSpec renders ACL items for specification output: a list of
// single-entry maps from role to its privilege keywords.
func privilegesSpec(acl []string) []any {
	var out []any
	for _, item := range acl {
		it := parseACLItem(item)
		role := it.role
		if role == "" {
			role = "PUBLIC"
		}
		privs := privList(it.flags)
		vals := make([]any, len(privs))
		for i, p := range privs {
			vals[i] = strings.ToLower(p)
		}
		out = append(out, map[string]any{role: vals})
	}
	return out
}
