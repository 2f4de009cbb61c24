package coal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripAddress struct {
	Street string
	Zip    int32
}

type roundTripPerson struct {
	Name      string
	Age       int32
	Addresses []roundTripAddress
	Tags      map[string]struct{}
	Scores    [3]int32
	Friend    *roundTripPerson
}

func init() {
	RegisterStructure(roundTripAddress{}, "Address")
	RegisterClass(roundTripPerson{}, "Person", nil)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	alice := &roundTripPerson{
		Name: "Alice",
		Age:  30,
		Addresses: []roundTripAddress{
			{Street: "1 Market St", Zip: 94105},
			{Street: "2 Mission St", Zip: 94103},
		},
		Tags:   map[string]struct{}{"vip": {}, "staff": {}},
		Scores: [3]int32{10, 20, 30},
	}

	data, err := Serialize(alice)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	var got *roundTripPerson
	require.NoError(t, Deserialize(data, &got))

	require.NotNil(t, got)
	assert.Equal(t, alice.Name, got.Name)
	assert.Equal(t, alice.Age, got.Age)
	assert.Equal(t, alice.Addresses, got.Addresses)
	assert.Equal(t, alice.Tags, got.Tags)
	assert.Equal(t, alice.Scores, got.Scores)
	assert.Nil(t, got.Friend)
}

func TestCyclicObjectGraphPreservesIdentity(t *testing.T) {
	alice := &roundTripPerson{Name: "Alice", Age: 30}
	bob := &roundTripPerson{Name: "Bob", Age: 31}
	alice.Friend = bob
	bob.Friend = alice

	data, err := Serialize(alice)
	require.NoError(t, err)

	var got *roundTripPerson
	require.NoError(t, Deserialize(data, &got))

	require.NotNil(t, got)
	require.NotNil(t, got.Friend)
	assert.Equal(t, "Bob", got.Friend.Name)
	require.NotNil(t, got.Friend.Friend)
	assert.Same(t, got, got.Friend.Friend)
}

type identityContainer struct {
	Map  map[string]*roundTripPerson
	List []*roundTripPerson
}

func init() {
	RegisterClass(identityContainer{}, "IdentityContainer", nil)
}

func TestSharedObjectIdentityAcrossMapAndSliceFields(t *testing.T) {
	shared := &roundTripPerson{Name: "Shared", Age: 1}
	root := &identityContainer{
		Map:  map[string]*roundTripPerson{"First": shared},
		List: []*roundTripPerson{shared},
	}

	data, err := Serialize(root)
	require.NoError(t, err)

	var got *identityContainer
	require.NoError(t, Deserialize(data, &got))

	require.NotNil(t, got)
	require.Len(t, got.List, 1)
	require.Contains(t, got.Map, "First")
	assert.Same(t, got.Map["First"], got.List[0])
}

type oldWidget struct {
	A int32
	B string
}

type newWidgetFieldDropped struct {
	A int32
}

type newWidgetFieldAdded struct {
	A int32
	C float64
}

func init() {
	RegisterClass(oldWidget{}, "Widget", nil)
	RegisterClass(newWidgetFieldDropped{}, "Widget", nil)
	RegisterClass(newWidgetFieldAdded{}, "Widget", nil)
}

type oldReorderWidget struct {
	A int16
	B string
}

type newReorderWidenWidget struct {
	B string
	A int32
}

func init() {
	RegisterClass(oldReorderWidget{}, "ReorderWidget", nil)
	RegisterClass(newReorderWidenWidget{}, "ReorderWidget", nil)
}

func TestSchemaEvolutionReordersFieldsAndWidensIntegerSimultaneously(t *testing.T) {
	data, err := Serialize(&oldReorderWidget{A: 7, B: "hi"})
	require.NoError(t, err)

	var got *newReorderWidenWidget
	require.NoError(t, Deserialize(data, &got))
	require.NotNil(t, got)
	assert.EqualValues(t, 7, got.A)
	assert.Equal(t, "hi", got.B)
}

func TestSchemaEvolutionDroppedFieldIsSkipped(t *testing.T) {
	data, err := Serialize(&oldWidget{A: 7, B: "hi"})
	require.NoError(t, err)

	var got *newWidgetFieldDropped
	require.NoError(t, Deserialize(data, &got))
	require.NotNil(t, got)
	assert.EqualValues(t, 7, got.A)
}

func TestSchemaEvolutionAddedFieldDefaultsToZero(t *testing.T) {
	data, err := Serialize(&oldWidget{A: 9, B: "ignored"})
	require.NoError(t, err)

	var got *newWidgetFieldAdded
	require.NoError(t, Deserialize(data, &got))
	require.NotNil(t, got)
	assert.EqualValues(t, 9, got.A)
	assert.Zero(t, got.C)
}

type animal struct {
	Name string
}

type dog struct {
	animal
	Breed string
}

func init() {
	RegisterClass(animal{}, "Animal", nil)
	RegisterClass(dog{}, "Dog", animal{})
}

func TestSupertypeFieldsRoundTripThroughPolymorphicPointer(t *testing.T) {
	d := &dog{animal: animal{Name: "Rex"}, Breed: "Collie"}

	data, err := Serialize(d)
	require.NoError(t, err)

	var got *dog
	require.NoError(t, Deserialize(data, &got))
	require.NotNil(t, got)
	assert.Equal(t, "Rex", got.Name)
	assert.Equal(t, "Collie", got.Breed)
}

func TestSerializeBoxesNonObjectRoot(t *testing.T) {
	data, err := Serialize([]int32{1, 2, 3})
	require.NoError(t, err)

	var got []int32
	require.NoError(t, Deserialize(data, &got))
	assert.Equal(t, []int32{1, 2, 3}, got)
}

func TestSerializeNilRootIsRejected(t *testing.T) {
	_, err := Serialize(nil)
	assert.Error(t, err)
}
