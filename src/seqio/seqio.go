/*
the seqio package contains custom types and methods for reading and holding sequence data
*/
package seqio

// Extensions are the sequence file extensions accepted in sample lists, each optionally
// followed by .gz
var Extensions = []string{"fastq", "fq", "fasta", "fa", "fna"}

// Sequence is the base type for a FASTA/FASTQ record
type Sequence struct {
	ID  string
	Seq []byte
}

// BaseCheck is a method to convert bases to upper case and mask anything that isn't ACTG with an N
func (Sequence *Sequence) BaseCheck() {
	for i, base := range Sequence.Seq {
		switch base {
		case 'A', 'C', 'G', 'T', 'N':
		case 'a', 'c', 'g', 't':
			Sequence.Seq[i] = base - ('a' - 'A')
		default:
			Sequence.Seq[i] = 'N'
		}
	}
}
