package tokens

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tokenforge/nestledger/common/errs"
)

func TestPropertyKeyValidate(t *testing.T) {
	assert.NoError(t, PropertyKey("color").Validate())
	assert.NoError(t, PropertyKey("a-b_c.d2").Validate())

	assert.ErrorIs(t, PropertyKey("").Validate(), errs.InvalidPropertyKey)
	assert.ErrorIs(t, PropertyKey("has space").Validate(), errs.InvalidPropertyKey)
	assert.ErrorIs(t, PropertyKey("has/slash").Validate(), errs.InvalidPropertyKey)
	assert.ErrorIs(t, PropertyKey(strings.Repeat("k", MaxPropertyKeyLength+1)).Validate(), errs.PropertyKeyTooLong)
	assert.NoError(t, PropertyKey(strings.Repeat("k", MaxPropertyKeyLength)).Validate())
}

func TestPropertiesTrySet(t *testing.T) {
	props := make(Properties)
	assert.NoError(t, props.TrySet("color", "red"))
	assert.Equal(t, PropertyValue("red"), props["color"])

	// overwrite is allowed by the map itself; permission checks live above it
	assert.NoError(t, props.TrySet("color", "blue"))
	assert.Equal(t, PropertyValue("blue"), props["color"])

	err := props.TrySet("big", PropertyValue(strings.Repeat("v", MaxPropertyValueLength+1)))
	assert.ErrorIs(t, err, errs.PropertyValueTooLong)
}

func TestPropertiesLimitReached(t *testing.T) {
	props := make(Properties)
	for i := 0; i < MaxPropertiesPerTarget; i++ {
		assert.NoError(t, props.TrySet(PropertyKey(fmt.Sprintf("key%d", i)), "v"))
	}
	assert.ErrorIs(t, props.TrySet("one-too-many", "v"), errs.PropertyLimitReached)

	// replacing an existing key is still allowed at the limit
	assert.NoError(t, props.TrySet("key0", "v2"))

	assert.True(t, props.Remove("key0"))
	assert.False(t, props.Remove("key0"))
	assert.NoError(t, props.TrySet("one-too-many", "v"))
}

func TestPropertiesClone(t *testing.T) {
	props := Properties{"color": "red"}
	clone := props.Clone()
	clone["color"] = "blue"
	assert.Equal(t, PropertyValue("red"), props["color"])
}
