package repository

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Plan is an aggregation query plan. Stages are appended in order and
// translated to a mongo.Pipeline by Pipeline.
type Plan struct {
	stages []bson.D
}

// Join describes a $lookup stage. When Pipeline is set it runs against every
// joined document before it is attached under As.
type Join struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
	Pipeline     *Plan
}

func NewPlan() *Plan {
	return &Plan{}
}

// Match filters documents.
func (p *Plan) Match(filter bson.D) *Plan {
	return p.add("$match", filter)
}

// Lookup joins documents from another collection.
func (p *Plan) Lookup(j Join) *Plan {
	spec := bson.D{
		{Key: "from", Value: j.From},
		{Key: "localField", Value: j.LocalField},
		{Key: "foreignField", Value: j.ForeignField},
		{Key: "as", Value: j.As},
	}
	if j.Pipeline != nil {
		spec = append(spec, bson.E{Key: "pipeline", Value: j.Pipeline.Pipeline()})
	}
	return p.add("$lookup", spec)
}

// AddFields derives new fields from expressions.
func (p *Plan) AddFields(fields bson.D) *Plan {
	return p.add("$addFields", fields)
}

// Project shapes the output documents.
func (p *Plan) Project(fields bson.D) *Plan {
	return p.add("$project", fields)
}

// Pipeline returns the stages in driver form.
func (p *Plan) Pipeline() mongo.Pipeline {
	out := make(mongo.Pipeline, len(p.stages))
	copy(out, p.stages)
	return out
}

func (p *Plan) add(op string, body bson.D) *Plan {
	p.stages = append(p.stages, bson.D{{Key: op, Value: body}})
	return p
}

// Ref turns a field path into a field reference expression.
func Ref(path string) string {
	return "$" + path
}

// Size is the length of an array expression.
func Size(array any) bson.D {
	return bson.D{{Key: "$size", Value: array}}
}

// In is true when value is an element of the array expression.
func In(value, array any) bson.D {
	return bson.D{{Key: "$in", Value: bson.A{value, array}}}
}

// Cond evaluates to then or otherwise depending on cond.
func Cond(cond, then, otherwise any) bson.D {
	return bson.D{{Key: "$cond", Value: bson.D{
		{Key: "if", Value: cond},
		{Key: "then", Value: then},
		{Key: "else", Value: otherwise},
	}}}
}

// First is the first element of an array expression, or missing when empty.
func First(array any) bson.D {
	return bson.D{{Key: "$first", Value: array}}
}

// Include builds a projection that keeps the given paths.
func Include(paths ...string) bson.D {
	out := make(bson.D, 0, len(paths))
	for _, path := range paths {
		out = append(out, bson.E{Key: path, Value: 1})
	}
	return out
}
