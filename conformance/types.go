package conformance

import (
	"net/netip"
	"time"

	"github.com/Query-farm/arrowcodec/arrowcodec"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is a string-backed enum stored as a dictionary column.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusActive  Status = "ACTIVE"
	StatusClosed  Status = "CLOSED"
)

// Point is a simple 2D point.
type Point struct {
	X float64 `arrow:"x"`
	Y float64 `arrow:"y"`
}

// BoundingBox contains two nested Points and a label.
type BoundingBox struct {
	TopLeft     Point  `arrow:"top_left"`
	BottomRight Point  `arrow:"bottom_right"`
	Label       string `arrow:"label"`
}

// Shape is a dense union over the shape variants. SparseShape carries the
// same variants in a sparse layout.
type Shape interface{ isShape() }

// SparseShape is the sparse counterpart of Shape.
type SparseShape interface{ isShape() }

// Empty is the unit variant; it has no payload.
type Empty struct{}

type Circle struct {
	Center Point   `arrow:"center"`
	Radius float64 `arrow:"radius"`
}

type Rect struct {
	Box BoundingBox `arrow:"box"`
}

type Polygon struct {
	Vertices []Point `arrow:"vertices"`
	Closed   *bool   `arrow:"closed"`
}

// Tag is a bare string variant.
type Tag string

func (Empty) isShape()   {}
func (Circle) isShape()  {}
func (*Rect) isShape()   {}
func (Polygon) isShape() {}
func (Tag) isShape()     {}

func shapeVariants() []arrowcodec.VariantSpec {
	return []arrowcodec.VariantSpec{
		arrowcodec.Variant[Empty]("empty"),
		arrowcodec.Variant[Circle]("circle"),
		arrowcodec.Variant[*Rect]("rect"),
		arrowcodec.Variant[Polygon]("polygon"),
		arrowcodec.Variant[Tag]("tag"),
	}
}

func init() {
	arrowcodec.MustRegisterUnion[Shape](arrow.DenseMode, shapeVariants()...)
	arrowcodec.MustRegisterUnion[SparseShape](arrow.SparseMode, shapeVariants()...)

	// IP addresses travel as their text form.
	arrowcodec.MustRegisterLeaf[netip.Addr, string](arrow.BinaryTypes.String,
		arrowcodec.EncoderFunc[netip.Addr, string](func(a netip.Addr) (string, error) {
			return a.String(), nil
		}),
		arrowcodec.DecoderFunc[netip.Addr, string](netip.ParseAddr),
	)
}

// AllTypes covers every built-in mapping in one row type.
type AllTypes struct {
	StrField       string            `arrow:"str_field"`
	LargeStr       string            `arrow:"large_str,large"`
	BytesField     []byte            `arrow:"bytes_field"`
	LargeBytes     []byte            `arrow:"large_bytes,large"`
	Digest         [4]byte           `arrow:"digest"`
	IntField       int64             `arrow:"int_field"`
	TinyInt        int8              `arrow:"tiny_int"`
	UnsignedInt    uint16            `arrow:"unsigned_int"`
	FloatField     float64           `arrow:"float_field"`
	BoolField      bool              `arrow:"bool_field"`
	ListOfInt      []int64           `arrow:"list_of_int"`
	ListOfStr      []string          `arrow:"list_of_str"`
	LargeList      []int32           `arrow:"large_list,large"`
	Triple         []float32         `arrow:"triple,fixed=3"`
	Pair           [2]int16          `arrow:"pair"`
	DictField      map[string]int64  `arrow:"dict_field"`
	EnumField      Status            `arrow:"enum_field,enum"`
	NestedPoint    Point             `arrow:"nested_point"`
	OptionalStr    *string           `arrow:"optional_str"`
	OptionalInt    *int64            `arrow:"optional_int"`
	OptionalNested *Point            `arrow:"optional_nested"`
	ListOfNested   []Point           `arrow:"list_of_nested"`
	AnnotatedInt32 int64             `arrow:"annotated_int32,int32"`
	AnnotatedFloat float64           `arrow:"annotated_float32,float32"`
	NestedList     [][]int64         `arrow:"nested_list"`
	DictStrStr     map[string]string `arrow:"dict_str_str"`
	ID             uuid.UUID         `arrow:"id"`
	Created        time.Time         `arrow:"created"`
	Day            time.Time         `arrow:"day,date32"`
	Elapsed        time.Duration     `arrow:"elapsed"`
	Alarm          time.Duration     `arrow:"alarm,time32"`
	Price          decimal.Decimal   `arrow:"price,decimal=18:4"`
	Addr           netip.Addr        `arrow:"addr"`
	Shape          Shape             `arrow:"shape"`
}
