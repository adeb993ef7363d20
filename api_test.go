package protodyn

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/protodyn/protodyn/dynamic"
)

const addressBookProto = `
syntax = "proto2";

package tutorial;

message Person {
  required string name = 1;
  optional int32 id = 2;
  optional string email = 3;

  enum PhoneType {
    MOBILE = 0;
    HOME = 1;
    WORK = 2;
  }

  message PhoneNumber {
    required string number = 1;
    optional PhoneType type = 2 [default = HOME];
  }

  repeated PhoneNumber phones = 4;
}

message AddressBook {
  repeated Person people = 1;
}

service Directory {
  rpc Lookup (Person) returns (AddressBook);
}
`

func newAddressBook(t *testing.T) *Protodyn {
	t.Helper()
	p := New()
	require.NoError(t, p.LoadSource("addressbook.proto", addressBookProto))
	return p
}

func TestMarshalParseRoundTrip(t *testing.T) {
	p := newAddressBook(t)

	in := map[string]interface{}{
		"name":  "Ada",
		"id":    7,
		"email": "ada@example.com",
		"phones": []map[string]interface{}{
			{"number": "555-0100", "type": "MOBILE"},
			{"number": "555-0101"},
		},
	}
	data, err := p.Marshal(in, "tutorial.Person")
	require.NoError(t, err)

	out, err := p.Parse(data, "tutorial.Person")
	require.NoError(t, err)
	require.Equal(t, "Ada", out["name"])
	require.Equal(t, int32(7), out["id"])
	require.Equal(t, "ada@example.com", out["email"])

	phones, ok := out["phones"].([]interface{})
	require.True(t, ok)
	require.Len(t, phones, 2)
	first, ok := phones[0].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "555-0100", first["number"])
	require.Equal(t, int32(0), first["type"])
	// The second phone carries the HOME default.
	second, ok := phones[1].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, int32(1), second["type"])
}

func TestUnmarshalToStruct(t *testing.T) {
	p := newAddressBook(t)

	data, err := p.Marshal(map[string]interface{}{
		"name":  "Grace",
		"id":    1,
		"email": "grace@example.com",
	}, "Person")
	require.NoError(t, err)

	type Person struct {
		Name  string
		Id    int32
		Email string
	}
	var got Person
	require.NoError(t, p.Unmarshal(data, &got))
	require.Equal(t, Person{Name: "Grace", Id: 1, Email: "grace@example.com"}, got)
}

func TestEnumLookup(t *testing.T) {
	p := newAddressBook(t)
	e, err := p.Enum("tutorial.Person.PhoneType")
	require.NoError(t, err)
	require.Equal(t, map[string]int32{"MOBILE": 0, "HOME": 1, "WORK": 2}, e)
}

func TestMessageFactory(t *testing.T) {
	p := newAddressBook(t)
	factory, err := p.Message("tutorial.AddressBook")
	require.NoError(t, err)

	book, err := factory.NewFromMap(map[string]interface{}{
		"people": []map[string]interface{}{
			{"name": "A"},
			{"name": "B"},
		},
	})
	require.NoError(t, err)

	data, err := book.Encode()
	require.NoError(t, err)
	decoded, err := factory.Decode(data)
	require.NoError(t, err)

	people, err := decoded.Get("people")
	require.NoError(t, err)
	require.Len(t, people, 2)
}

func TestServiceDispatch(t *testing.T) {
	p := newAddressBook(t)

	bookFactory, err := p.Message("tutorial.AddressBook")
	require.NoError(t, err)
	transport := func(methodFQN string, req *dynamic.Message, done func(resp interface{}, err error)) {
		require.Equal(t, "tutorial.Directory.Lookup", methodFQN)
		book, err := bookFactory.New()
		if err != nil {
			done(nil, err)
			return
		}
		done(book, nil)
	}

	d, err := p.Service("Directory", transport)
	require.NoError(t, err)

	personFactory, err := p.Message("Person")
	require.NoError(t, err)
	req, err := personFactory.NewFromMap(map[string]interface{}{"name": "Ada"})
	require.NoError(t, err)

	got := make(chan error, 1)
	d.Call("Lookup", req, func(resp *dynamic.Message, err error) {
		if err == nil && resp == nil {
			err = fmt.Errorf("nil response")
		}
		got <- err
	})
	require.NoError(t, <-got)
}

func TestListings(t *testing.T) {
	p := newAddressBook(t)
	_, err := p.Message("Person")
	require.NoError(t, err)

	require.ElementsMatch(t, []string{
		"tutorial.Person", "tutorial.Person.PhoneNumber", "tutorial.AddressBook",
	}, p.ListMessages())
	require.ElementsMatch(t, []string{"tutorial.Person.PhoneType"}, p.ListEnums())
	require.ElementsMatch(t, []string{"tutorial.Directory"}, p.ListServices())
}
