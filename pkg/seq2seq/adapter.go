package seq2seq

import (
	"github.com/ocrtools/corasv/pkg/model"
	"github.com/ocrtools/corasv/pkg/vocab"
)

// Wrap adapts a loaded parameter bundle to the search's [Model] interface.
func Wrap(m *model.Model) Model {
	return netModel{m}
}

type netModel struct {
	m *model.Model
}

func (n netModel) Vocab() *vocab.Vocabulary { return n.m.Vocab }

func (n netModel) ContextDim() int { return n.m.ContextDim }

func (n netModel) NewSession(ids []int, context []float32) (Session, error) {
	enc, err := n.m.Encode(ids, context)
	if err != nil {
		return nil, err
	}
	return &netSession{m: n.m, enc: enc}, nil
}

type netSession struct {
	m   *model.Model
	enc *model.Encoded
}

func (s *netSession) InputLen() int { return s.enc.Len() }

func (s *netSession) Start() State { return s.m.Start(s.enc) }

func (s *netSession) Step(st State, prev int) StepResult {
	res := s.m.Step(s.enc, st.(*model.DecoderState), prev)
	return StepResult{
		Probs:    res.Probs,
		State:    res.State,
		WindowLo: res.WindowLo,
		Weights:  res.Weights,
	}
}
